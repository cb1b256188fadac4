package rank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/internal"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrServer       = errors.New("server error")
)

// Service fetches the external roles of players.
type Service struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewService ...
func NewService(log *slog.Logger, url string) *Service {
	return &Service{
		url:    strings.TrimRight(url, "/"),
		client: internal.NewClient(internal.ClientConfig{Log: log.With("subsystem", "roles")}),
		log:    log,
	}
}

// RolesOfXUID returns the role ids linked to an Xbox account.
func (s *Service) RolesOfXUID(ctx context.Context, xuid string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"/"+xuid, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("server returned %d: %w", resp.StatusCode, ErrServer)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var roles []string
	if err = json.Unmarshal(body, &roles); err != nil {
		return nil, fmt.Errorf("failed to parse roles: %w", err)
	}
	s.log.Debug("fetched roles", "xuid", xuid, "roles", roles)
	return roles, nil
}

// RolesError parses a role error to be sent to a player.
func RolesError(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "Your account is not linked to the server."
	case errors.Is(err, ErrServer):
		return "Server error while fetching roles"
	default:
		return fmt.Sprintf("Failed to fetch roles %s", err)
	}
}
