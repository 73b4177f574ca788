package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/db"
)

// maxUserInfoBytes bounds provider responses.
const maxUserInfoBytes = 1 << 20

func fetchProfile(ctx context.Context, client *http.Client, p config.OAuth2Provider) (*auth.OAuthProfile, error) {
	switch p.Name {
	case config.OAuth2ProviderGoogle:
		return googleProfile(ctx, client, p)
	case config.OAuth2ProviderGitHub:
		return githubProfile(ctx, client, p)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p.Name)
	}
}

type googleUser struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func googleProfile(ctx context.Context, client *http.Client, p config.OAuth2Provider) (*auth.OAuthProfile, error) {
	var u googleUser
	if err := getJSON(ctx, client, p.UserInfoURL, &u); err != nil {
		return nil, err
	}
	if u.Email == "" || !u.EmailVerified {
		return nil, ErrNoVerifiedEmail
	}
	return &auth.OAuthProfile{
		Provider:  db.ProviderGoogle,
		SubjectID: u.Sub,
		Email:     u.Email,
		FullName:  u.Name,
		AvatarURL: u.Picture,
	}, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// githubProfile reads /user and, when the public email is hidden, picks the
// primary verified address from /user/emails.
func githubProfile(ctx context.Context, client *http.Client, p config.OAuth2Provider) (*auth.OAuthProfile, error) {
	var u githubUser
	if err := getJSON(ctx, client, p.UserInfoURL, &u); err != nil {
		return nil, err
	}

	email := u.Email
	if email == "" && p.EmailsURL != "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, p.EmailsURL, &emails); err != nil {
			return nil, err
		}
		email = primaryGithubEmail(emails)
	}
	if email == "" {
		return nil, ErrNoVerifiedEmail
	}

	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = u.Login
	}
	return &auth.OAuthProfile{
		Provider:  db.ProviderGitHub,
		SubjectID: strconv.FormatInt(u.ID, 10),
		Email:     email,
		FullName:  name,
		AvatarURL: u.AvatarURL,
	}, nil
}

func primaryGithubEmail(emails []githubEmail) string {
	var fallback string
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email
		}
		if fallback == "" {
			fallback = e.Email
		}
	}
	return fallback
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrUserInfo, url, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUserInfo, url, err)
	}
	return nil
}
