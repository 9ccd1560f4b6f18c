package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ghaggin/roadmap/internal/config"
	"github.com/ghaggin/roadmap/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubName = "github"
	githubAPI  = "https://api.github.com"
)

type GitHub struct {
	oauthConfig *oauth2.Config
	apiBase     string
}

func NewGitHub(c config.OAuthClient, redirectURL string) *GitHub {
	return newGitHub(c, redirectURL, github.Endpoint, githubAPI)
}

func newGitHub(c config.OAuthClient, redirectURL string, endpoint oauth2.Endpoint, apiBase string) *GitHub {
	return &GitHub{
		oauthConfig: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: apiBase,
	}
}

func (g *GitHub) Name() string {
	return githubName
}

func (g *GitHub) AuthCodeURL(state string, codeChallenge string) string {
	return g.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) ExchangeCode(ctx context.Context, code string, codeVerifier string) (model.Identity, error) {
	token, err := g.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return model.Identity{}, fmt.Errorf("github token exchange: %w", err)
	}
	client := g.oauthConfig.Client(ctx, token)

	var user githubUser
	if err := g.get(ctx, client, "/user", &user); err != nil {
		return model.Identity{}, err
	}
	if user.ID == 0 {
		return model.Identity{}, errors.New("github user has no id")
	}

	// The profile email is empty when the user keeps it private.
	email := user.Email
	if email == "" {
		var emails []githubEmail
		if err := g.get(ctx, client, "/user/emails", &emails); err != nil {
			return model.Identity{}, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return model.Identity{
		ID:       identityID(githubName, strconv.FormatInt(user.ID, 10)),
		Email:    model.NormalizeEmail(email),
		Name:     model.DisplayName(name, email),
		Provider: githubName,
	}, nil
}

func (g *GitHub) get(ctx context.Context, client *http.Client, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
