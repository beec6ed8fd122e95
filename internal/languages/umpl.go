package languages

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UMPL functions are written
//
//	potato <name> <argc> ⧼ body ⧽
//
// where name is any run of non-space runes. "!" starts a line comment and
// backticks delimit strings. Functions may nest.
const (
	umplKeyword = "potato"
	umplOpen    = '⧼'
	umplClose   = '⧽'
)

type umplRecord struct {
	name      string
	argc      int
	start     int // byte offset of the keyword
	end       int // byte offset after the closing delimiter
	startLine int
	endLine   int
	parents   []int
	closed    bool
}

type umplFrame struct {
	record int // -1 for plain blocks
}

func extractUMPL(src []byte) ([]Function, error) {
	s := &umplScanner{src: src, line: 1}
	s.scan()

	var out []Function
	for i, rec := range s.records {
		if !rec.closed {
			continue
		}
		fn := Function{
			Name:    rec.name,
			Lang:    UMPL,
			Parents: s.parentsOf(i),
			Body:    lineStartBody(src, rec.start, rec.end),
			Span: Span{
				StartLine: rec.startLine,
				EndLine:   rec.endLine,
				StartByte: rec.start,
				EndByte:   rec.end,
			},
			UMPL: &UMPLInfo{ArgCount: rec.argc},
		}
		for a := 0; a < rec.argc; a++ {
			fn.Params = append(fn.Params, Param{Name: "$" + strconv.Itoa(a+1)})
		}
		out = append(out, fn)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.StartByte < out[j].Span.StartByte })
	return out, nil
}

type umplScanner struct {
	src     []byte
	pos     int
	line    int
	records []umplRecord
	stack   []umplFrame
}

func (s *umplScanner) scan() {
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRune(s.src[s.pos:])
		switch {
		case r == '\n':
			s.line++
			s.pos += size
		case r == '!':
			s.skipComment()
		case r == '`':
			s.skipString()
		case r == umplOpen:
			s.stack = append(s.stack, umplFrame{record: -1})
			s.pos += size
		case r == umplClose:
			s.pos += size
			s.close()
		case s.atKeyword():
			s.header()
		default:
			s.pos += size
		}
	}
}

func (s *umplScanner) atKeyword() bool {
	if !strings.HasPrefix(string(s.src[s.pos:min(len(s.src), s.pos+len(umplKeyword))]), umplKeyword) {
		return false
	}
	if s.pos > 0 {
		prev, _ := utf8.DecodeLastRune(s.src[:s.pos])
		if isWord(prev) {
			return false
		}
	}
	next, _ := utf8.DecodeRune(s.src[min(len(s.src), s.pos+len(umplKeyword)):])
	return next == utf8.RuneError || !isWord(next)
}

// header reads "potato name argc ⧼". A malformed header is skipped and
// scanning resumes after the keyword.
func (s *umplScanner) header() {
	start, startLine := s.pos, s.line
	s.pos += len(umplKeyword)

	s.skipSpace()
	name := s.token()
	s.skipSpace()
	argc, err := strconv.Atoi(s.token())
	s.skipSpace()

	r, size := utf8.DecodeRune(s.src[min(len(s.src), s.pos):])
	if name == "" || err != nil || r != umplOpen {
		return
	}
	s.pos += size

	var parents []int
	for _, f := range s.stack {
		if f.record >= 0 {
			parents = append(parents, f.record)
		}
	}
	s.records = append(s.records, umplRecord{
		name:      name,
		argc:      argc,
		start:     start,
		startLine: startLine,
		parents:   parents,
	})
	s.stack = append(s.stack, umplFrame{record: len(s.records) - 1})
}

func (s *umplScanner) close() {
	if len(s.stack) == 0 {
		return
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if top.record < 0 {
		return
	}
	rec := &s.records[top.record]
	rec.end = s.pos
	rec.endLine = s.line
	rec.closed = true
}

func (s *umplScanner) token() string {
	begin := s.pos
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRune(s.src[s.pos:])
		if unicode.IsSpace(r) || r == umplOpen || r == umplClose || r == '!' || r == '`' {
			break
		}
		s.pos += size
	}
	return string(s.src[begin:s.pos])
}

func (s *umplScanner) skipSpace() {
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRune(s.src[s.pos:])
		switch {
		case r == '\n':
			s.line++
		case r == '!':
			s.skipComment()
			continue
		case !unicode.IsSpace(r):
			return
		}
		s.pos += size
	}
}

func (s *umplScanner) skipComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *umplScanner) skipString() {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\n':
			s.line++
		case '`':
			s.pos++
			return
		}
		s.pos++
	}
}

func (s *umplScanner) parentsOf(i int) []Parent {
	var out []Parent
	for _, idx := range s.records[i].parents {
		rec := s.records[idx]
		p := Parent{
			Kind:   ParentFunction,
			Name:   rec.name,
			Top:    lineAt(s.src, rec.startLine),
			Params: make([]Param, rec.argc),
			Span:   Span{StartLine: rec.startLine, EndLine: rec.endLine, StartByte: rec.start, EndByte: rec.end},
		}
		if rec.closed && rec.endLine > rec.startLine {
			p.Bottom = lineAt(s.src, rec.endLine)
		}
		out = append(out, p)
	}
	return out
}

func lineStartBody(src []byte, start, end int) string {
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	return string(src[start:end])
}
