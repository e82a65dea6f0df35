package logger

import (
	"strings"

	"github.com/nulzo/model-registry/internal/cli"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var encodePool = buffer.NewPool()

// coloredConsoleEncoder highlights the JSON field block the console encoder appends
// after the message. Stack traces and lines without fields pass through untouched.
type coloredConsoleEncoder struct {
	zapcore.Encoder
}

func NewColoredConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &coloredConsoleEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

func (c *coloredConsoleEncoder) Clone() zapcore.Encoder {
	return &coloredConsoleEncoder{Encoder: c.Encoder.Clone()}
}

func (c *coloredConsoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := c.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return nil, err
	}

	head, block, tail, ok := splitFieldBlock(buf.String())
	if !ok {
		return buf, nil
	}

	out := encodePool.Get()
	out.AppendString(head)
	out.AppendString(cli.HighlightJSON(block))
	out.AppendString(tail)
	buf.Free()
	return out, nil
}

// splitFieldBlock cuts a console line into the prefix up to and including the tab that
// starts the field object, the object itself, and whatever follows it (newline, stack).
func splitFieldBlock(line string) (head, block, tail string, ok bool) {
	start := strings.Index(line, "\t{")
	if start < 0 {
		return "", "", "", false
	}
	head, rest := line[:start+1], line[start+1:]

	end := strings.IndexByte(rest, '\n')
	if end < 0 {
		end = len(rest)
	}
	return head, rest[:end], rest[end:], true
}
