package stream

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filiksyos/linkedin-search-app/internal/models"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	sent := []Fragment{
		{Type: TypeStart, MessageID: "a1"},
		TextDelta("Searching"),
		{Type: TypeToolInputStart, ToolCallID: "c1", ToolName: "search_linkedin"},
		{Type: TypeToolInputDelta, ToolCallID: "c1", InputTextDelta: `{"query":`},
		{Type: TypeToolInputAvailable, ToolCallID: "c1", ToolName: "search_linkedin", Input: &models.QueryInput{Query: "AI"}},
		{Type: TypeToolOutputAvailable, ToolCallID: "c1", Output: &models.ToolResult{Success: true}},
		{Type: TypeFinish},
	}
	for _, f := range sent {
		require.NoError(t, w.Send(f))
	}
	require.NoError(t, w.Done())
	require.Error(t, w.Send(TextDelta("late")))

	r := NewReader(&buf)
	var got []Fragment
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, f)
	}
	require.Equal(t, sent, got)

	_, err := r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestWriterFlushesAndRefusesInvalid(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	require.ErrorIs(t, w.Send(Fragment{Type: "mystery"}), ErrInvalidFragment)
	require.NoError(t, w.Send(TextDelta("a")))
	require.True(t, rec.Flushed)
	require.Equal(t, "data: {\"type\":\"text-delta\",\"delta\":\"a\"}\n\n", rec.Body.String())
}

func TestReaderTruncatedStream(t *testing.T) {
	r := NewReader(strings.NewReader("data: {\"type\":\"text-delta\",\"delta\":\"a\"}\n\n"))

	f, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "a", f.Delta)

	_, err = r.Next()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestReaderSkipsCommentsAndRejectsUnknownTypes(t *testing.T) {
	body := ": keep-alive\n\n" +
		"event: message\ndata: {\"type\":\"start\",\"messageId\":\"a1\"}\n\n" +
		"data: {\"type\":\"data-progress\"}\n\n"
	r := NewReader(strings.NewReader(body))

	f, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, TypeStart, f.Type)
	require.Equal(t, "a1", f.MessageID)

	_, err = r.Next()
	require.ErrorIs(t, err, ErrInvalidFragment)
}

func TestReaderRejectsMalformedJSON(t *testing.T) {
	r := NewReader(strings.NewReader("data: {not json\n\n"))
	_, err := r.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode stream fragment")
}
