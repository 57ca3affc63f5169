package user

import (
	"fmt"
	"strings"
	"time"
)

const insecureTokenPrefix = "mock_token_"

var NowFunc = time.Now // mockable

// InsecureSessionToken is a placeholder session token derived from a user id and a timestamp.
// It is not a credential: anyone can forge one and Moodle does not know about it.
// It only tells the front end that a user is considered signed in.
type InsecureSessionToken string

func NewInsecureSessionToken(userID int, now time.Time) InsecureSessionToken {
	ms := now.UnixNano() / int64(time.Millisecond)
	return InsecureSessionToken(fmt.Sprintf("%s%d_%d", insecureTokenPrefix, userID, ms))
}

// IsInsecureSessionToken reports whether `token` is a placeholder rather than a Moodle token.
func IsInsecureSessionToken(token string) bool {
	return strings.HasPrefix(token, insecureTokenPrefix)
}
