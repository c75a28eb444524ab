package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVar_CustomTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		tag     string
		wantErr bool
	}{
		{name: "alias letters digits", value: "my-alias_01", tag: "alias"},
		{name: "alias with space", value: "my alias", tag: "alias", wantErr: true},
		{name: "alias with slash", value: "../etc", tag: "alias", wantErr: true},
		{name: "alias empty", value: "", tag: "alias", wantErr: true},
		{name: "hub https", value: "https://hub.example.com", tag: "hub_url"},
		{name: "hub http", value: "http://localhost:8080", tag: "hub_url"},
		{name: "hub ftp", value: "ftp://hub.example.com", tag: "hub_url", wantErr: true},
		{name: "hub omitted", value: "", tag: "omitempty,hub_url"},
		{name: "maxbytes at limit", value: "abcd", tag: "maxbytes=4"},
		{name: "maxbytes counts bytes", value: "éé", tag: "maxbytes=3", wantErr: true},
		{name: "maxbytes bad param", value: "a", tag: "maxbytes=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Var(tt.value, tt.tag)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
