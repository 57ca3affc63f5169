package site

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/moodlegw/core/moodle"
)

// Service probes the Moodle site the gateway is configured against.
type Service struct {
	client *moodle.Client
}

func NewService(client *moodle.Client) *Service {
	return &Service{client: client}
}

// Info returns the site info as seen by the service token.
// It fails when the token or the web service is misconfigured.
func (svc *Service) Info(ctx context.Context) (json.RawMessage, error) {
	info, err := svc.client.GetSiteInfo(ctx, "")
	return info, errors.Wrap(err, "getting site info")
}
