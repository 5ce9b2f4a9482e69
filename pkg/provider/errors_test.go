package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	unavailable := &UnavailableError{Provider: "asana", Status: 503}
	rejected := &RejectedError{Provider: "google", Status: 400, Detail: "bad"}
	credential := &CredentialError{Provider: "google", Err: errors.New("invalid_grant")}

	assert.True(t, IsUnavailable(unavailable))
	assert.False(t, IsUnavailable(rejected))

	assert.True(t, IsCredential(credential))
	assert.False(t, IsCredential(unavailable))

	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(rejected))
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("google fetch failed: %w", &UnavailableError{Provider: "google", Err: errors.New("timeout")})
	assert.True(t, IsUnavailable(err))

	err = fmt.Errorf("asana: %w", ErrNotFound)
	assert.True(t, IsNotFound(err))

	err = fmt.Errorf("refresh: %w", &CredentialError{Provider: "google"})
	assert.True(t, IsCredential(err))
}
