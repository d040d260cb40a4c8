package model

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/undertaker-go/blockdefect/internal/symbol"
	"github.com/undertaker-go/blockdefect/pkg/formula"
)

// TextStore is the keyed-line ("RSF") Store variant: a ".model" file
// binding option names to their implication formula plus meta-entries,
// and an optional companion ".rsf" file binding option names to their
// declared type. Grounded on RsfConfigurationModel/RsfReader/ItemRsfReader
// in the original undertaker implementation.
type TextStore struct {
	*base
	values map[string]string
	types  map[string]string
}

var itemNameRegex = regexp.MustCompile(`^CONFIG_([0-9A-Za-z_]+?)(_MODULE)?$`)

// NewTextStore loads a keyed-line model file and its companion Item file
// (same stem, .rsf extension). A missing companion file is not fatal:
// type queries simply report MISSING and a warning is logged, matching
// the original's "checking symbol types will fail" behavior.
func NewTextStore(log *logrus.Logger, modelPath string) (*TextStore, error) {
	name := strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath))
	s := &TextStore{
		base:   newBase(name),
		values: make(map[string]string),
		types:  make(map[string]string),
	}

	values, meta, err := readKeyedLines(modelPath, "UNDERTAKER_SET")
	if err != nil {
		if os.IsNotExist(err) {
			logWarnf(log, "model file %q not found, treating configuration space as empty", modelPath)
		} else {
			return nil, errors.Wrapf(err, "reading model file %q", modelPath)
		}
	}
	s.values = values
	for k, v := range meta {
		s.meta[k] = append([]string(nil), v...)
	}

	if len(s.values) == 0 {
		logWarnf(log, "model %q is empty; marking configuration space incomplete", name)
		s.AddMetaValue(MetaConfigurationSpaceIncomplete, "1")
	}

	s.setConfigurationSpaceRegex()

	itemPath := strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".rsf"
	types, err := readItemTypes(itemPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "reading item file %q", itemPath)
	}
	if err != nil {
		logWarnf(log, "couldn't open %q, checking symbol types will fail", itemPath)
	}
	s.types = types

	return s, nil
}

func logWarnf(log *logrus.Logger, format string, args ...interface{}) {
	if log == nil {
		return
	}
	log.Warnf(format, args...)
}

// readKeyedLines parses the "<KEY> <VALUE...>" format described in
// spec.md §4.B/§6: lines whose first token equals metaflag place the
// remainder into the meta-map (deque of quoted strings, trimmed of
// surrounding '"'), other lines bind key to the remainder of the line.
func readKeyedLines(path, metaflag string) (map[string]string, map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	values := make(map[string]string)
	meta := make(map[string][]string)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		key := fields[0]
		if key == metaflag && len(fields) >= 2 {
			metaKey := fields[1]
			rest := strings.TrimSpace(strings.TrimPrefix(line, key))
			rest = strings.TrimSpace(strings.TrimPrefix(rest, metaKey))
			for _, item := range splitQuotedItems(rest) {
				item = trimQuotes(item)
				if item == "" {
					continue
				}
				dup := false
				for _, existing := range meta[metaKey] {
					if existing == item {
						dup = true
						break
					}
				}
				if !dup {
					meta[metaKey] = append(meta[metaKey], item)
				}
			}
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, key))
		values[key] = trimQuotes(rest)
	}
	if err := scanner.Err(); err != nil {
		return values, meta, err
	}
	return values, meta, nil
}

// splitQuotedItems splits a string on whitespace, except inside a
// double-quoted run, matching the original RsfReader's handling of meta
// items that themselves contain whitespace.
func splitQuotedItems(s string) []string {
	var items []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			items = append(items, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return items
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// readItemTypes parses a companion Item file: lines "Item <symbol> <type>",
// all other lines discarded.
func readItemTypes(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return map[string]string{}, err
	}
	defer f.Close()

	types := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[0] != "Item" {
			continue
		}
		types[fields[1]] = fields[2]
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return types, err
	}
	return types, nil
}

func (s *TextStore) ModelVersionIdentifier() string { return "rsf" }

func (s *TextStore) IsBoolean(name string) bool {
	return strings.EqualFold(s.types[symbol.NormalizeOptionName(name)], "boolean")
}

func (s *TextStore) IsTristate(name string) bool {
	return strings.EqualFold(s.types[symbol.NormalizeOptionName(name)], "tristate")
}

func (s *TextStore) GetType(name string) string {
	m := itemNameRegex.FindStringSubmatch(name)
	if m == nil {
		return TypeError
	}
	item := m[1]
	t, ok := s.types[item]
	if !ok {
		return TypeMissing
	}
	return strings.ToUpper(t)
}

func (s *TextStore) ContainsSymbol(name string) bool {
	_, ok := s.values[name]
	return containsSymbol(name, ok)
}

func (s *TextStore) formulaOf(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *TextStore) DoIntersectPreprocess(itemSet map[string]struct{}, j *formula.Joiner, exclude map[string]struct{}) {
	doIntersectPreprocess(s.base, s, itemSet, j, exclude)
}

var _ Store = (*TextStore)(nil)
