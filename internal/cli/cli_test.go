package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, newVersionCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "mixnote")
	assert.Contains(t, out, Version)
}

func TestListCmd_EmptyMemoryStore(t *testing.T) {
	out, err := execute(t, newListCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "No recordings found.")
}

func TestOpenCmd_RejectsNonNumericID(t *testing.T) {
	_, err := execute(t, newOpenCmd(), "bounce")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording id must be a number")
}

func TestStorageCheck_Memory(t *testing.T) {
	_ = loadConfig() // defaults select the memory backend
	c := storageCheck()
	assert.Equal(t, "ok", c.status)
}
