package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/restauth/client/auth/mock"
)

func TestRun(t *testing.T) {
	service, err := mock.NewAuthenticationService()
	require.NoError(t, err)
	server := httptest.NewServer(service.Handler())
	defer server.Close()
	credentialsURL := filepath.Join(t.TempDir(), "credentials.json")
	common := []string{"--url", server.URL, "--storage.type", "file", "--storage.url", credentialsURL}

	var testCases = []struct {
		description string
		args        []string
		expect      string
		expectErr   bool
	}{
		{description: "status before login", args: []string{"status"}, expect: "not authenticated\n"},
		{description: "login without password", args: []string{"login", "-U", "alice"}, expectErr: true},
		{description: "wrong password", args: []string{"login", "-U", "alice", "-P", "nope"}, expectErr: true},
		{description: "session login is not persisted", args: []string{"login", "-U", "alice", "-P", "wonderland"}, expect: "logged in as alice: Credentials<Access: redacted, Refresh: redacted>\n"},
		{description: "status after session login", args: []string{"status"}, expect: "not authenticated\n"},
		{description: "remembered login", args: []string{"login", "-U", "alice", "-P", "wonderland", "--remember"}, expect: "logged in as alice: Credentials<Access: redacted, Refresh: redacted>\n"},
		{description: "status after remembered login", args: []string{"status"}, expect: "authenticated (durable): Credentials<Access: redacted, Refresh: redacted>\n"},
		{description: "authenticated call", args: []string{"call", "-X", "post", "-d", `{"qty":2}`, "/orders/"}, expect: "200 OK\n"},
		{description: "public call", args: []string{"call", "--public", "/orders/"}, expect: "401 Unauthorized\n"},
		{description: "logout", args: []string{"logout"}, expect: "logged out\n"},
		{description: "status after logout", args: []string{"status"}, expect: "not authenticated\n"},
		{description: "call after logout", args: []string{"call", "/orders/"}, expectErr: true},
		{description: "effective options", args: []string{"config", "--refresh-path", "/refresh/"}, expect: "refreshPath: /refresh/\n"},
		{description: "unknown command", args: []string{"whoami"}, expectErr: true},
	}

	for _, testCase := range testCases {
		stdout := &bytes.Buffer{}
		args := append([]string{testCase.args[0]}, common...)
		args = append(args, testCase.args[1:]...)
		err := Run(context.Background(), args, stdout)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Contains(t, stdout.String(), testCase.expect, testCase.description)
	}
}
