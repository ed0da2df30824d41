package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSerialEncodeDecode(t *testing.T) {
	out, err := run(t, "serial", "encode", "12345")
	require.NoError(t, err)
	assert.Equal(t, "NB3\n", out)

	out, err = run(t, "serial", "decode", "NB3")
	require.NoError(t, err)
	assert.Equal(t, "12345\n", out)
}

func TestSerialEncodeRejectsGarbage(t *testing.T) {
	_, err := run(t, "serial", "encode", "12a")
	require.Error(t, err)
}

func TestTokenDecode(t *testing.T) {
	const token = "TG9ja2VyS2V5PUFCMTItQ0QzNA0KU2VyaWFsTnVtYmVyPU5CMw0KRmlyc3ROYW1lPUphbmUNCkxhc3ROYW1lPURvZQ0KRGVzY3JpcHRpb249UU1haWwgSW5ib3gNCkluYm94RmVlPTENCkNsYXNzPWtpbG8"

	out, err := run(t, "token", "decode", token)
	require.NoError(t, err)
	assert.Contains(t, out, "LockerKey=AB12-CD34\r\n")
	assert.Contains(t, out, "Class=kilo")
	assert.Contains(t, out, "# serial NB3 = 12345")
	assert.NotContains(t, out, "unknown class")
}
