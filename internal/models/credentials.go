package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/desertthunder/ytbulk/internal/shared"
	"golang.org/x/oauth2"
)

// Credentials is the OAuth credential bundle owned by a session.
//
// It is persisted as JSON and only ever read back through [DecodeCredentials].
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// CredentialsFromToken converts an [oauth2.Token] into a bundle.
//
// Scopes come from the token's "scope" extra when the provider returned one, otherwise the requested scopes are kept.
func CredentialsFromToken(tok *oauth2.Token, requested []string) Credentials {
	creds := Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry.UTC(),
		Scopes:       append([]string(nil), requested...),
	}

	if granted, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(granted) != "" {
		creds.Scopes = strings.Fields(granted)
	}
	return creds
}

// Token returns the bundle as an [oauth2.Token].
func (c Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// Expired reports whether the access token is past its expiry at now. A zero expiry never expires.
func (c Credentials) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// Validate checks the required fields.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return fmt.Errorf("%w: access_token is required", shared.ErrInvalidCredentials)
	}
	if c.TokenType != "" && !strings.EqualFold(c.TokenType, "bearer") {
		return fmt.Errorf("%w: unsupported token_type %q", shared.ErrInvalidCredentials, c.TokenType)
	}
	return nil
}

// Encode validates and serializes the bundle.
func (c Credentials) Encode() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

// DecodeCredentials parses a stored bundle. Unknown fields, trailing data and bundles that fail
// [Credentials.Validate] are rejected.
func DecodeCredentials(data []byte) (Credentials, error) {
	var creds Credentials

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Credentials{}, fmt.Errorf("%w: trailing data after credentials", shared.ErrInvalidCredentials)
	}

	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}
