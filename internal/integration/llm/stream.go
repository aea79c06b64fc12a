package llm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/futig/report-writer/internal/entity"
)

var (
	dataPrefix    = []byte("data:")
	doneSentinel  = []byte("[DONE]")
	errStreamUsed = errors.New("chat stream already consumed")
)

// ChatStream decodes an OpenAI-compatible event stream into text fragments.
type ChatStream struct {
	body      io.ReadCloser
	reader    *bufio.Reader
	consumed  atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewChatStream(body io.ReadCloser) *ChatStream {
	return &ChatStream{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Fragments yields each content delta as soon as its event line is complete.
// The sequence ends at the [DONE] sentinel or at EOF; a read failure or an
// invalid UTF-8 payload is yielded once as a terminal error.
func (s *ChatStream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			yield("", errStreamUsed)
			return
		}
		defer s.Close()

		for {
			line, readErr := s.reader.ReadBytes('\n')
			if len(line) > 0 {
				fragment, done, err := decodeEventLine(line)
				if err != nil {
					yield("", err)
					return
				}
				if done {
					return
				}
				if fragment != "" && !yield(fragment, nil) {
					return
				}
			}

			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					yield("", &entity.UpstreamError{Err: readErr})
				}
				return
			}
		}
	}
}

// Close releases the underlying connection. Safe to call more than once.
func (s *ChatStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// decodeEventLine returns the content fragment carried by one event line.
// Lines without the data prefix and payloads that are not valid JSON are
// skipped.
func decodeEventLine(line []byte) (fragment string, done bool, err error) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, dataPrefix) {
		return "", false, nil
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return "", false, nil
	}
	if bytes.Equal(payload, doneSentinel) {
		return "", true, nil
	}

	// The JSON decoder would silently turn bad bytes into U+FFFD.
	if !utf8.Valid(payload) {
		return "", false, &entity.EncodingError{Where: "stream", Offset: invalidUTF8OffsetBytes(payload)}
	}

	var event entity.ChatStreamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", false, nil
	}
	if len(event.Choices) == 0 {
		return "", false, nil
	}

	return event.Choices[0].Delta.Content, false, nil
}

func invalidUTF8OffsetBytes(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
