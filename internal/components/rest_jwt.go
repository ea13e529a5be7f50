package components

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/httpclient"
	"MarketPrompt/internal/prompt"
)

const tokenLoginPath = "/api/v1/token/login"

// RestJWTConfig configures a REST call behind a JWT login. The token is
// obtained with basic auth from TokenEndpoint, which defaults to
// <origin of URL>/api/v1/token/login.
type RestJWTConfig struct {
	Description   string            `yaml:"description"`
	Username      string            `yaml:"username"`
	Password      string            `yaml:"password"`
	TokenEndpoint string            `yaml:"token_endpoint"`
	URL           string            `yaml:"url"`
	Method        string            `yaml:"method"`
	Params        map[string]string `yaml:"params"`
	Data          any               `yaml:"data"`
}

// RestJWT logs in and calls a REST endpoint with the bearer token.
type RestJWT struct {
	prompt.Base
	cfg    RestJWTConfig
	client *http.Client
}

// NewRestJWT creates a REST component.
func NewRestJWT(cfg RestJWTConfig, client *http.Client) *RestJWT {
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	return &RestJWT{
		Base: prompt.Base{Template: cfg.Description, Vars: map[string]any{
			"url":    cfg.URL,
			"method": cfg.Method,
		}},
		cfg:    cfg,
		client: client,
	}
}

func (r *RestJWT) Name() string { return "rest_jwt" }

func (r *RestJWT) tokenURL() (string, error) {
	if strings.TrimSpace(r.cfg.TokenEndpoint) != "" {
		return r.cfg.TokenEndpoint, nil
	}
	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q", r.cfg.URL)
	}
	return u.Scheme + "://" + u.Host + tokenLoginPath, nil
}

func (r *RestJWT) login(ctx context.Context) (string, error) {
	tokenURL, err := r.tokenURL()
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(r.cfg.Username, r.cfg.Password)
	body, err := httpclient.Do(r.client, req)
	if err != nil {
		return "", fmt.Errorf("token login: %w", err)
	}
	token := gjson.GetBytes(body, "access_token")
	if !token.Exists() || token.String() == "" {
		return "", errors.New("token login: no access_token in response")
	}
	return token.String(), nil
}

func (r *RestJWT) Content(ctx context.Context) (string, error) {
	out, err := r.call(ctx)
	if err != nil {
		return "", prompt.Fail("Error: "+err.Error(), err)
	}
	return out, nil
}

func (r *RestJWT) call(ctx context.Context) (string, error) {
	token, err := r.login(ctx)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return "", err
	}
	if len(r.cfg.Params) > 0 {
		q := u.Query()
		for k, v := range r.cfg.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var payload io.Reader
	if r.cfg.Data != nil {
		data, err := json.Marshal(r.cfg.Data)
		if err != nil {
			return "", fmt.Errorf("encode data: %w", err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, r.cfg.Method, u.String(), payload)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	body, err := httpclient.Do(r.client, req)
	if err != nil {
		return "", err
	}
	if gjson.ValidBytes(body) {
		return compactJSON(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return "", err
	}
	return string(quoted), nil
}

func buildRestJWT(opts *yaml.Node, deps Deps) (prompt.Component, error) {
	var cfg RestJWTConfig
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	return NewRestJWT(cfg, deps.HTTP), nil
}
