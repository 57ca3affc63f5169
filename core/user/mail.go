package user

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/trezcool/moodlegw/core"
)

const welcomeText = `Hi %s,

Your account "%s" has been created.
You can now sign in and browse the courses at %s.
`

func (svc *Service) sendWelcomeMail(nu NewUser) {
	msg := &core.EmailMessage{
		To: []mail.Address{{
			Name:    strings.TrimSpace(nu.Firstname + " " + nu.Lastname),
			Address: nu.Email,
		}},
		Subject:     "Welcome",
		TextContent: fmt.Sprintf(welcomeText, nu.Firstname, nu.Username, svc.conf.FrontendBaseURL),
	}
	svc.mailSvc.SendMessages(msg)
}
