package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"math"

	"chat-board/errors"
)

const (
	headerSize = 4
	// DefaultMaxFrameSize bounds a single body to 16 MiB.
	DefaultMaxFrameSize = 16 << 20
)

// Encode renders an envelope as a 4-byte big-endian length followed by its JSON body.
func Encode(e Envelope) ([]byte, error) {
	body, err := Marshal(e)
	if err != nil {
		return nil, err
	}
	if uint64(len(body)) > math.MaxUint32 {
		return nil, errors.ErrFrameTooLarge
	}
	frame := make([]byte, headerSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[headerSize:], body)
	return frame, nil
}

// Marshal renders the JSON body of e alone, as carried by transports with their own framing.
func Marshal(e Envelope) ([]byte, error) {
	body, err := marshalNoEscape(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return body, nil
}

// WriteFrame encodes e and writes the frame in a single call.
func WriteFrame(w io.Writer, e Envelope) error {
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// Decode reads one frame from r.
// It returns io.EOF only when the stream ends before any header byte.
// Every other failure wraps errors.ErrMalformedFrame.
func Decode(r io.Reader, maxFrameSize uint32) (Envelope, error) {
	var header [headerSize]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		if n == 0 && goerrors.Is(err, io.EOF) {
			return Envelope{}, io.EOF
		}
		return Envelope{}, fmt.Errorf("%w: header: %w", errors.ErrMalformedFrame, err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size == 0 {
		return Envelope{}, nil
	}
	if maxFrameSize > 0 && size > maxFrameSize {
		return Envelope{}, fmt.Errorf("%w: %w: %d bytes", errors.ErrMalformedFrame, errors.ErrFrameTooLarge, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, fmt.Errorf("%w: body: %w", errors.ErrMalformedFrame, err)
	}

	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", errors.ErrMalformedFrame, err)
	}
	return e, nil
}

// marshalNoEscape keeps '<', '>' and '&' as typed by users.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
