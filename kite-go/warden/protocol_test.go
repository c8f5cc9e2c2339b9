package warden

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageArgs(t *testing.T) {
	msg := NewMessage(ActionCopyIn).
		With("handle", "h1").
		With("src_path", "/tmp/with space").
		With("dst_path", "/in/a")

	require.NoError(t, msg.Validate())
	assert.Equal(t, []string{
		"--", "copy_in",
		"--handle", "h1",
		"--src_path", "/tmp/with space",
		"--dst_path", "/in/a",
	}, msg.Args())
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, NewMessage(ActionCreate).Validate())

	err := NewMessage("launch").Validate()
	require.IsType(t, &ProtocolError{}, err)
	assert.Equal(t, "unknown action", err.(*ProtocolError).Reason)

	err = NewMessage(ActionLink).With("handle", "h").Validate()
	require.IsType(t, &ProtocolError{}, err)
	assert.Equal(t, "missing --job_id", err.(*ProtocolError).Reason)
}

func TestParseResponse(t *testing.T) {
	resp := ParseResponse("exit_status : 0\nstdout : a\nb\n\nc\nstderr : warning: x\n")
	assert.Equal(t, "0", resp[FieldExitStatus])
	assert.Equal(t, "a\nb\n\nc", resp[FieldStdout])
	assert.Equal(t, "warning: x", resp[FieldStderr])

	resp = ParseResponse("handle : 17abc\n")
	handle, err := resp.Get(ActionCreate, FieldHandle)
	require.NoError(t, err)
	assert.Equal(t, "17abc", handle)

	_, err = resp.Get(ActionSpawn, FieldJobID)
	assert.IsType(t, &ProtocolError{}, err)
}

func TestParseResponseIgnoresLeadingNoise(t *testing.T) {
	resp := ParseResponse("connecting to /tmp/warden.sock\njob_id : 9\n")
	assert.Equal(t, Response{FieldJobID: "9"}, resp)
}

func TestParseResponseEmptyValue(t *testing.T) {
	resp := ParseResponse("stdout : \nstderr : \n")
	assert.Equal(t, "", resp[FieldStdout])
	assert.Equal(t, "", resp[FieldStderr])
}

func TestParseResponseFieldsSetOnce(t *testing.T) {
	resp := ParseResponse("exit_status : 0\nexit_status : 7\nstdout : exit_status : 3\nhandle : x\nstdout : y\nstderr : e\nstdout : z\n")
	assert.Equal(t, Response{
		FieldExitStatus: "0",
		FieldStdout:     "exit_status : 3\nhandle : x\nstdout : y",
		FieldStderr:     "e\nstdout : z",
	}, resp)
}

func TestParseResponseHeaderIsSingleLine(t *testing.T) {
	resp := ParseResponse("handle : h1\ntrailing noise\n")
	assert.Equal(t, Response{FieldHandle: "h1"}, resp)
}
