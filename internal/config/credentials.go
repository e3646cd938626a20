package config

import (
	"errors"
	"fmt"
	"os"

	"subgrab/internal/errs"

	"gopkg.in/yaml.v3"
)

// ImgurCredentials is the content of the imgur credentials file.
type ImgurCredentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Complete reports whether both fields are filled in.
func (c ImgurCredentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// RedditCredentials is the content of the reddit script-app credentials file.
type RedditCredentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	UserAgent    string `yaml:"user_agent"`
}

// Complete reports whether every field needed for a password grant is filled in.
func (c RedditCredentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

// LoadImgurCredentials reads the imgur credentials file.
// A missing file or empty fields yield ErrCredentialsMissing.
func LoadImgurCredentials(path string) (ImgurCredentials, error) {
	var creds ImgurCredentials

	err := loadYAML(path, &creds)
	if err != nil {
		return ImgurCredentials{}, err
	}

	if !creds.Complete() {
		return ImgurCredentials{}, fmt.Errorf("%w: %s: client_id and client_secret are required", errs.ErrCredentialsMissing, path)
	}

	return creds, nil
}

// LoadRedditCredentials reads the reddit credentials file.
func LoadRedditCredentials(path string) (RedditCredentials, error) {
	var creds RedditCredentials

	err := loadYAML(path, &creds)
	if err != nil {
		return RedditCredentials{}, err
	}

	if !creds.Complete() {
		return RedditCredentials{}, fmt.Errorf("%w: %s: client_id, client_secret, username and password are required",
			errs.ErrCredentialsMissing, path)
	}

	return creds, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s not found", errs.ErrCredentialsMissing, path)
	}

	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	err = yaml.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("%w: decode %s: %w", errs.ErrCredentialsInvalid, path, err)
	}

	return nil
}
