package model

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/undertaker-go/blockdefect/pkg/formula"
)

// CNFStore is the clause-oriented Store variant described in spec.md
// §4.B/§6: a DIMACS-flavored file naming clauses by the option they
// constrain and carrying a symbol-name/type table alongside. It is
// grounded on CnfConfigurationModel/PicosatCNF in the original
// undertaker, generalized to a textual clause format since the SAT
// backend used here (pkg/sat, over irifrance/gini) parses propositional
// strings rather than loading a solver-specific binary CNF blob.
//
// File format, one directive per line:
//
//	VAR <id> <name>            declare a variable id for symbol name
//	TYPE <name> <type>         BOOLEAN | TRISTATE | INTEGER | HEX | STRING
//	CLAUSE <name> <lit...> 0   a clause constraining name, DIMACS literals
//	META <key> <value...>      meta-list entry
//	# comment
type CNFStore struct {
	*base
	varNames map[int]string
	types    map[string]string
	clauses  map[string][]string // name -> rendered disjunction-of-literal strings
}

// NewCNFStore loads a clause-oriented model file.
func NewCNFStore(log *logrus.Logger, path string) (*CNFStore, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s := &CNFStore{
		base:     newBase(name),
		varNames: make(map[int]string),
		types:    make(map[string]string),
		clauses:  make(map[string][]string),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logWarnf(log, "cnf model file %q not found, treating configuration space as empty", path)
			s.AddMetaValue(MetaConfigurationSpaceIncomplete, "1")
			s.setConfigurationSpaceRegex()
			return s, nil
		}
		return nil, errors.Wrapf(err, "opening cnf model file %q", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "VAR":
			if len(fields) < 3 {
				continue
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.Wrapf(err, "cnf model %q: bad VAR line %q", path, line)
			}
			s.varNames[id] = fields[2]
		case "TYPE":
			if len(fields) < 3 {
				continue
			}
			s.types[fields[1]] = fields[2]
		case "CLAUSE":
			if len(fields) < 3 {
				continue
			}
			owner := fields[1]
			clause, err := s.renderClause(fields[2:])
			if err != nil {
				return nil, errors.Wrapf(err, "cnf model %q: bad CLAUSE line %q", path, line)
			}
			if clause != "" {
				s.clauses[owner] = append(s.clauses[owner], clause)
			}
		case "META":
			if len(fields) < 2 {
				continue
			}
			for _, v := range fields[2:] {
				s.AddMetaValue(fields[1], trimQuotes(v))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading cnf model file %q", path)
	}

	if len(s.varNames) == 0 {
		logWarnf(log, "cnf model %q has no variables; marking configuration space incomplete", name)
		s.AddMetaValue(MetaConfigurationSpaceIncomplete, "1")
	}
	s.setConfigurationSpaceRegex()
	return s, nil
}

// renderClause converts a 0-terminated list of DIMACS integer literals
// into a human-readable "a || !b || c" disjunction using the variable
// name table.
func (s *CNFStore) renderClause(litFields []string) (string, error) {
	var lits []string
	for _, lf := range litFields {
		n, err := strconv.Atoi(lf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			break
		}
		name, ok := s.varNames[abs(n)]
		if !ok {
			return "", fmt.Errorf("literal %d has no VAR declaration", n)
		}
		if n < 0 {
			lits = append(lits, "!"+name)
		} else {
			lits = append(lits, name)
		}
	}
	if len(lits) == 0 {
		return "", nil
	}
	return "(" + strings.Join(lits, " || ") + ")", nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (s *CNFStore) ModelVersionIdentifier() string { return "cnf" }

func (s *CNFStore) IsBoolean(name string) bool {
	return strings.EqualFold(s.types[symbolNormalize(name)], "boolean") ||
		strings.EqualFold(s.types[symbolNormalize(name)], "BOOLEAN")
}

func (s *CNFStore) IsTristate(name string) bool {
	return strings.EqualFold(s.types[symbolNormalize(name)], "tristate") ||
		strings.EqualFold(s.types[symbolNormalize(name)], "TRISTATE")
}

func (s *CNFStore) GetType(name string) string {
	m := itemNameRegex.FindStringSubmatch(name)
	if m == nil {
		return TypeError
	}
	t, ok := s.types[m[1]]
	if !ok {
		return TypeMissing
	}
	return strings.ToUpper(t)
}

func (s *CNFStore) ContainsSymbol(name string) bool {
	_, ok := s.clauses[name]
	if !ok {
		_, ok = s.types[name]
	}
	return containsSymbol(name, ok)
}

func (s *CNFStore) formulaOf(name string) (string, bool) {
	clauses, ok := s.clauses[name]
	if !ok || len(clauses) == 0 {
		return "", false
	}
	return strings.Join(clauses, " && "), true
}

func (s *CNFStore) DoIntersectPreprocess(itemSet map[string]struct{}, j *formula.Joiner, exclude map[string]struct{}) {
	doIntersectPreprocess(s.base, s, itemSet, j, exclude)
}

var _ Store = (*CNFStore)(nil)

func symbolNormalize(name string) string {
	m := itemNameRegex.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return m[1]
}
