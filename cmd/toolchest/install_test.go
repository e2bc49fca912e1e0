package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitToolArg(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		tool    string
		version string
		wantErr bool
	}{
		{name: "semver", arg: "foo@1.2.0", tool: "foo", version: "1.2.0"},
		{name: "v_prefix", arg: "foo@v1.2.0", tool: "foo", version: "v1.2.0"},
		{name: "non_semver_allowed", arg: "terraform@nightly", tool: "terraform", version: "nightly"},
		{name: "missing_version", arg: "foo", wantErr: true},
		{name: "empty_version", arg: "foo@", wantErr: true},
		{name: "empty_name", arg: "@1.2.0", wantErr: true},
		{name: "latest_rejected", arg: "foo@latest", wantErr: true},
		{name: "range_rejected", arg: "foo@^1.2.0", wantErr: true},
		{name: "wildcard_rejected", arg: "foo@1.2.*", wantErr: true},
		{name: "comparator_rejected", arg: "foo@>=1.2.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, version, err := splitToolArg(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tool, tool)
			assert.Equal(t, tt.version, version)
		})
	}
}
