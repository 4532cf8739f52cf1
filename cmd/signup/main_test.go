package main

import (
	"bytes"
	"testing"

	"rental-console/internal/gateway/gatewaytest"
	"rental-console/internal/handlers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseArgs(backend string, extra ...string) []string {
	args := []string{"-email", "nia@example.com", "-name", "Nia New", "-phone", "555-0100", "-backend", backend}
	return append(args, extra...)
}

func TestRun_Success(t *testing.T) {
	fake := gatewaytest.New()
	defer fake.Close()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	err := run(baseArgs(fake.URL, "-role", "customer", "-password", "hunter22"), stdin, stdout, stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Account nia@example.com created successfully")
	assert.Contains(t, fake.Requests(), "POST /auth/signup")
}

func TestRun_RoleByID(t *testing.T) {
	fake := gatewaytest.New()
	defer fake.Close()

	err := run(baseArgs(fake.URL, "-role", "1", "-password", "hunter22"), new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.NoError(t, err)
}

func TestRun_UserRoleIsNotOffered(t *testing.T) {
	fake := gatewaytest.New()
	defer fake.Close()

	err := run(baseArgs(fake.URL, "-role", "USER", "-password", "hunter22"), new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "USER"`)
	assert.NotContains(t, fake.Requests(), "POST /auth/signup")
}

func TestRun_DuplicateAccount(t *testing.T) {
	fake := gatewaytest.New()
	defer fake.Close()

	args := baseArgs(fake.URL, "-role", "2", "-password", "hunter22")
	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)), "first run should succeed")

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err, "expected error on duplicate account")
	assert.Equal(t, handlers.DuplicateAccountMessage, err.Error())
}

func TestRun_MissingFlags(t *testing.T) {
	stdout := new(bytes.Buffer)
	err := run([]string{"-email", "nia@example.com"}, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: name, phone, role")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_InteractivePassword(t *testing.T) {
	fake := gatewaytest.New()
	defer fake.Close()

	stdout := new(bytes.Buffer)
	stdin := bytes.NewBufferString("interactive_secret\ninteractive_secret\n")

	err := run(baseArgs(fake.URL, "-role", "2"), stdin, stdout, new(bytes.Buffer))
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "Confirm password: ")
	assert.Contains(t, stdout.String(), "created successfully")
}

func TestRun_InteractivePasswordMismatch(t *testing.T) {
	stdin := bytes.NewBufferString("first_secret\nsecond_secret\n")
	err := run(baseArgs("http://127.0.0.1:1", "-role", "2"), stdin, new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Equal(t, "Passwords do not match", err.Error())
}

func TestRun_ShortPassword(t *testing.T) {
	err := run(baseArgs("http://127.0.0.1:1", "-role", "2", "-password", "abc"), new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Equal(t, "Password must be at least 6 characters long", err.Error())
}

func TestRun_EmptyInteractivePassword(t *testing.T) {
	err := run(baseArgs("http://127.0.0.1:1", "-role", "2"), bytes.NewBufferString("\n\n"), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Equal(t, "Please enter and confirm your password", err.Error())
}

func TestRun_EnvBackendOverride(t *testing.T) {
	fake := gatewaytest.New()
	defer fake.Close()
	t.Setenv("BACKEND_URL", fake.URL)

	args := []string{"-email", "env@example.com", "-name", "Env User", "-phone", "1", "-role", "2", "-password", "hunter22"}
	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)))
	assert.Contains(t, fake.Requests(), "POST /auth/signup")
}

func TestRun_BackendUnreachable(t *testing.T) {
	err := run(baseArgs("http://127.0.0.1:1", "-role", "2", "-password", "hunter22"), new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load roles")
}

func TestRun_InvalidFlag(t *testing.T) {
	err := run([]string{"-invalid"}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err, "expected error for invalid flag")
	assert.Contains(t, err.Error(), "flag provided but not defined")
}
