package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want Location
	}{
		{
			raw:  "abfss://ws-1@onelake.dfs.fabric.microsoft.com/lh-1/Tables/orders",
			want: Location{Endpoint: "https://onelake.dfs.fabric.microsoft.com", Filesystem: "ws-1", Path: "lh-1/Tables/orders"},
		},
		{
			raw:  "https://onelake.dfs.fabric.microsoft.com/ws-1/lh-1/Tables/orders/",
			want: Location{Endpoint: "https://onelake.dfs.fabric.microsoft.com", Filesystem: "ws-1", Path: "lh-1/Tables/orders"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "lh-1/Tables/orders/_delta_log", got.LogDir())
		})
	}
}

func TestParseLocation_Invalid(t *testing.T) {
	for _, raw := range []string{
		"s3://bucket/table",
		"abfss://onelake.dfs.fabric.microsoft.com/lh/Tables/t",
		"https://onelake.dfs.fabric.microsoft.com/ws-only",
		"abfss://ws@host/",
	} {
		_, err := ParseLocation(raw)
		assert.Error(t, err, raw)
	}
}

func TestLocation_FileURLEscapes(t *testing.T) {
	loc := Location{Endpoint: "https://h", Filesystem: "ws 1", Path: "lh/Tables/my table"}
	assert.Equal(t, "https://h/ws%201/lh/Tables/my%20table/_delta_log/x.json", loc.fileURL(loc.LogDir()+"/x.json"))
}
