// Package parser turns free-text submission commands into structured leave
// requests. The expected shape is:
//
//	請假 <開始日期> 到 <結束日期> <假別> [理由...]
//
// Only token count is validated; date tokens are accepted verbatim with no
// format or start/end ordering checks.
package parser

import (
	"errors"
	"strings"

	"github.com/garyjia/leave-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// Keyword marks a text message as a leave submission command
const Keyword = "請假"

// UsageHint is the reply sent when a submission does not match the shape.
// Kept byte-for-byte stable; tests depend on it.
const UsageHint = "格式錯誤，請用: 請假 開始日期 到 結束日期 假別 [理由]"

// minTokens is keyword + start + separator + end + leave type
const minTokens = 5

// ErrMalformedRequest is returned when the submission text has fewer than
// the minimum required tokens
var ErrMalformedRequest = errors.New("malformed leave request")

// Command is the structured result of parsing a submission
type Command struct {
	StartDate string
	EndDate   string
	LeaveType string
	Reason    string
}

// Parser parses leave submission commands
type Parser struct {
	logger *zap.Logger
}

// New creates a new Parser
func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// IsSubmission reports whether the text is addressed to this workflow at all.
// Non-submission chatter is ignored upstream without a reply.
func (p *Parser) IsSubmission(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), Keyword)
}

// Parse extracts a Command from the raw submission text.
// Fails with ErrMalformedRequest when fewer than five whitespace-separated
// tokens are present; no record is created on failure.
func (p *Parser) Parse(text string) (*Command, error) {
	tokens := strings.Fields(strings.TrimSpace(text))
	if len(tokens) < minTokens {
		p.logger.Debug("Submission does not match expected shape",
			zap.Int("tokens", len(tokens)))
		return nil, ErrMalformedRequest
	}

	// tokens[2] is the literal 到 separator; it is positional only and not
	// validated, matching the documented command shape.
	cmd := &Command{
		StartDate: tokens[1],
		EndDate:   tokens[3],
		LeaveType: tokens[4],
		Reason:    entity.DefaultReason,
	}
	if len(tokens) > minTokens {
		cmd.Reason = strings.Join(tokens[minTokens:], " ")
	}

	return cmd, nil
}
