package out

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"uair/internal/modules/timer/domain"
	timerout "uair/internal/modules/timer/port/out"
	"uair/internal/platform/humantime"
)

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenName
	tokenPercent
	tokenTime
	tokenTotal
	tokenState
	tokenColor
)

type token struct {
	kind tokenKind
	text string
}

var placeholders = map[string]token{
	"{name}":    {kind: tokenName},
	"{percent}": {kind: tokenPercent},
	"{time}":    {kind: tokenTime},
	"{total}":   {kind: tokenTotal},
	"{state}":   {kind: tokenState},
	"{black}":   {kind: tokenColor, text: "\x1b[0;30m"},
	"{red}":     {kind: tokenColor, text: "\x1b[0;31m"},
	"{green}":   {kind: tokenColor, text: "\x1b[0;32m"},
	"{yellow}":  {kind: tokenColor, text: "\x1b[0;33m"},
	"{blue}":    {kind: tokenColor, text: "\x1b[0;34m"},
	"{purple}":  {kind: tokenColor, text: "\x1b[0;35m"},
	"{cyan}":    {kind: tokenColor, text: "\x1b[0;36m"},
	"{white}":   {kind: tokenColor, text: "\x1b[0;37m"},
	"{end}":     {kind: tokenColor, text: "\x1b[0m"},
}

// parseFormat splits a display format into placeholders and literal runs.
// Braces that do not spell a known placeholder stay literal.
func parseFormat(format string) []token {
	var tokens []token
	start, open := 0, -1
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case '{':
			open = i
		case '}':
			if open < 0 {
				continue
			}
			tok, ok := placeholders[format[open:i+1]]
			if !ok {
				continue
			}
			if start != open {
				tokens = append(tokens, token{kind: tokenLiteral, text: format[start:open]})
			}
			tokens = append(tokens, tok)
			start = i + 1
			open = -1
		}
	}
	if start != len(format) {
		tokens = append(tokens, token{kind: tokenLiteral, text: format[start:]})
	}
	return tokens
}

type unit uint8

const (
	unitYear unit = iota
	unitMonth
	unitDay
	unitHour
	unitMinute
	unitSecond
)

type pad uint8

const (
	padZero pad = iota
	padSpace
	padNone
)

type timeTokenKind uint8

const (
	timeLiteral timeTokenKind = iota
	timeNumeric
	timePlural
)

type timeToken struct {
	kind     timeTokenKind
	unit     unit
	pad      pad
	skipZero bool
	text     string
}

var units = map[byte]unit{
	'Y': unitYear,
	'B': unitMonth,
	'D': unitDay,
	'H': unitHour,
	'M': unitMinute,
	'S': unitSecond,
}

// parseTimeFormat reads strftime-like directives: %[*][-_0]X where X is one of
// Y B D H M S, or P for a plural suffix. Anything else is kept verbatim.
func parseTimeFormat(format string) []timeToken {
	var tokens []timeToken
	for i := 0; i < len(format); {
		if format[i] != '%' {
			j := strings.IndexByte(format[i:], '%')
			if j < 0 {
				j = len(format) - i
			}
			tokens = append(tokens, timeToken{kind: timeLiteral, text: format[i : i+j]})
			i += j
			continue
		}

		raw := "%"
		i++
		tok := timeToken{kind: timeNumeric, pad: padZero}
		if i < len(format) && format[i] == '*' {
			tok.skipZero = true
			raw += "*"
			i++
		}
		if i < len(format) {
			switch format[i] {
			case '-':
				tok.pad = padNone
				raw += "-"
				i++
			case '_':
				tok.pad = padSpace
				raw += "_"
				i++
			case '0':
				raw += "0"
				i++
			}
		}
		if i >= len(format) {
			tokens = append(tokens, timeToken{kind: timeLiteral, text: raw})
			break
		}
		spec := format[i]
		i++
		if u, ok := units[spec]; ok {
			tok.unit = u
			tokens = append(tokens, tok)
			continue
		}
		if spec == 'P' {
			tokens = append(tokens, timeToken{kind: timePlural})
			continue
		}
		tokens = append(tokens, timeToken{kind: timeLiteral, text: raw + string(spec)})
	}
	return tokens
}

const (
	secondsPerYear  = 31_557_600
	secondsPerMonth = 2_630_016
)

func renderTime(b *strings.Builder, remaining time.Duration, format []timeToken) {
	secs := int64(remaining / time.Second)
	if secs < 0 {
		secs = 0
	}
	years := secs / secondsPerYear
	rest := secs % secondsPerYear
	months := rest / secondsPerMonth
	rest %= secondsPerMonth
	values := [...]int64{
		unitYear:   years,
		unitMonth:  months,
		unitDay:    rest / 86400,
		unitHour:   rest % 86400 / 3600,
		unitMinute: rest % 3600 / 60,
		unitSecond: rest % 60,
	}

	skip := false
	plural := ""
	for _, tok := range format {
		switch tok.kind {
		case timeNumeric:
			v := values[tok.unit]
			if tok.skipZero && v == 0 {
				skip = true
				continue
			}
			skip = false
			plural = ""
			if v > 1 {
				plural = "s"
			}
			switch tok.pad {
			case padZero:
				fmt.Fprintf(b, "%02d", v)
			case padSpace:
				fmt.Fprintf(b, "%2d", v)
			default:
				fmt.Fprintf(b, "%d", v)
			}
		case timeLiteral:
			if !skip {
				b.WriteString(tok.text)
			}
		case timePlural:
			if !skip {
				b.WriteString(plural)
			}
		}
	}
}

// DisplayFormatter renders session displays. Parsed formats are cached by
// their source string.
type DisplayFormatter struct {
	mu      sync.Mutex
	formats map[string][]token
	times   map[string][]timeToken
}

func NewDisplayFormatter() timerout.Formatter {
	return &DisplayFormatter{
		formats: map[string][]token{},
		times:   map[string][]timeToken{},
	}
}

func (f *DisplayFormatter) Render(session domain.Session, display domain.Display, remaining time.Duration, resumed bool) (string, error) {
	format, timeFormat := f.parsed(display.Format, display.TimeFormat)

	var b strings.Builder
	for _, tok := range format {
		switch tok.kind {
		case tokenLiteral, tokenColor:
			b.WriteString(tok.text)
		case tokenName:
			b.WriteString(session.Name)
		case tokenPercent:
			fmt.Fprintf(&b, "%d", percent(remaining, session.Duration))
		case tokenTime:
			renderTime(&b, remaining, timeFormat)
		case tokenTotal:
			b.WriteString(humantime.Format(session.Duration))
		case tokenState:
			b.WriteString(display.StateText(resumed))
		}
	}
	return b.String(), nil
}

func (f *DisplayFormatter) parsed(format, timeFormat string) ([]token, []timeToken) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens, ok := f.formats[format]
	if !ok {
		tokens = parseFormat(format)
		f.formats[format] = tokens
	}
	timeTokens, ok := f.times[timeFormat]
	if !ok {
		timeTokens = parseTimeFormat(timeFormat)
		f.times[timeFormat] = timeTokens
	}
	return tokens, timeTokens
}

// percent reports remaining as a share of total, saturating at 255.
func percent(remaining, total time.Duration) int {
	if total <= 0 || remaining <= 0 {
		return 0
	}
	p := int(remaining.Seconds() * 100 / total.Seconds())
	if p > 255 {
		return 255
	}
	return p
}
