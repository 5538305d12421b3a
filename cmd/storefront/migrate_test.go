// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/pkg/errutil"
)

// fakeMigrator records calls made by the migrate commands.
type fakeMigrator struct {
	version  uint
	dirty    bool
	applied  []uint
	pending  []uint
	upErr    error
	calls    []string
	forced   int
	steps    int
	closed   bool
	closeErr error
}

func (m *fakeMigrator) Up() error {
	m.calls = append(m.calls, "up")
	return m.upErr
}

func (m *fakeMigrator) Down() error {
	m.calls = append(m.calls, "down")
	return nil
}

func (m *fakeMigrator) Steps(n int) error {
	m.calls = append(m.calls, "steps")
	m.steps = n
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) {
	return m.version, m.dirty, nil
}

func (m *fakeMigrator) Force(version int) error {
	m.calls = append(m.calls, "force")
	m.forced = version
	return nil
}

func (m *fakeMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }
func (m *fakeMigrator) AppliedMigrations() ([]uint, error) { return m.applied, nil }

func (m *fakeMigrator) Close() error {
	m.closed = true
	return m.closeErr
}

func runMigrate(t *testing.T, m *fakeMigrator, args ...string) (string, error) {
	t.Helper()
	configFile = ""
	var gotURL string
	cmd := newMigrateCmdWithDeps(&MigrateDeps{
		MigratorFactory: func(url string) (Migrator, error) {
			gotURL = url
			return m, nil
		},
	})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		assert.Equal(t, "postgres://shop@localhost/shop", gotURL)
	}
	return buf.String(), err
}

func TestMigrate_Up(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")

	m := &fakeMigrator{pending: []uint{2, 3}}
	out, err := runMigrate(t, m)
	require.NoError(t, err)
	assert.Equal(t, []string{"up"}, m.calls)
	assert.True(t, m.closed)
	assert.Contains(t, out, "Applying 2 migration(s)")

	m = &fakeMigrator{}
	out, err = runMigrate(t, m, "up")
	require.NoError(t, err)
	assert.Empty(t, m.calls, "nothing pending means Up is not called")
	assert.Contains(t, out, "up to date")
}

func TestMigrate_UpFailure(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")

	m := &fakeMigrator{pending: []uint{1}, upErr: errors.New("syntax error")}
	_, err := runMigrate(t, m, "up")
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
	assert.True(t, m.closed, "migrator is closed on failure")
}

func TestMigrate_Down(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")

	m := &fakeMigrator{}
	_, err := runMigrate(t, m, "down")
	require.NoError(t, err)
	assert.Equal(t, []string{"steps"}, m.calls)
	assert.Equal(t, -1, m.steps)

	m = &fakeMigrator{}
	_, err = runMigrate(t, m, "down", "--all")
	require.NoError(t, err)
	assert.Equal(t, []string{"down"}, m.calls)
}

func TestMigrate_Status(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")

	m := &fakeMigrator{version: 2, applied: []uint{1, 2}, pending: []uint{3}}
	out, err := runMigrate(t, m, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 2")
	assert.Contains(t, out, "applied  000001_principals")
	assert.Contains(t, out, "applied  000002_password_resets")
	assert.Contains(t, out, "pending  000003_catalog")
}

func TestMigrate_Version(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")

	out, err := runMigrate(t, &fakeMigrator{version: 3, dirty: true}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: 3 (dirty)")

	out, err = runMigrate(t, &fakeMigrator{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema version: none")
}

func TestMigrate_Force(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")

	m := &fakeMigrator{}
	_, err := runMigrate(t, m, "force", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, m.forced)

	m = &fakeMigrator{}
	_, err = runMigrate(t, m, "force", "abc")
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	assert.Empty(t, m.calls)
}

func TestMigrate_DatabaseURLFlag(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := runMigrate(t, &fakeMigrator{}, "version", "--database-url", "postgres://shop@localhost/shop")
	require.NoError(t, err)
}

func TestMigrate_NoDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STOREFRONT_DATABASE__URL", "")

	_, err := runMigrate(t, &fakeMigrator{}, "up")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestMigrate_FactoryError(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://shop@localhost/shop")
	configFile = ""

	cmd := newMigrateCmdWithDeps(&MigrateDeps{
		MigratorFactory: func(string) (Migrator, error) {
			return nil, errors.New("connection refused")
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"up"})

	errutil.AssertErrorCode(t, cmd.Execute(), "DB_CONNECT_FAILED")
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "float parses as integer (Sscanf stops at dot)", input: "1.5", wantVersion: 1},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative is valid", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErr: true},
		{name: "whitespace only returns error", input: "   ", wantErr: true},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)

			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestGetDatabaseURL(t *testing.T) {
	url, err := getDatabaseURL("")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "key", "database.url")
	assert.Empty(t, url)

	url, err = getDatabaseURL("postgres://localhost:5432/shop")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/shop", url)
}
