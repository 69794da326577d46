package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Victor-armando18/order-pricing/internal/domain"
	"github.com/Victor-armando18/order-pricing/internal/interfaces"
)

// Versões viram nome de arquivo: nada de separadores nem "..".
var versionPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._-]*$`)

type FileRuleLoader struct {
	Dir string
}

func NewFileRuleLoader(dir string) interfaces.RulePackLoader {
	return &FileRuleLoader{Dir: dir}
}

func (l *FileRuleLoader) Load(ctx context.Context, version string) (*domain.RulePackDefinition, error) {
	if !versionPattern.MatchString(version) || strings.Contains(version, "..") {
		return nil, fmt.Errorf("%w: invalid version %q", domain.ErrRulePackNotFound, version)
	}

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(l.Dir, fmt.Sprintf("%s_rules%s", version, ext))

		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
		}

		var def domain.RulePackDefinition
		if ext == ".json" {
			err = json.Unmarshal(data, &def)
		} else {
			err = yaml.Unmarshal(data, &def)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidRulePack, path, err)
		}
		if def.Version == "" {
			def.Version = version
		}
		return &def, nil
	}

	return nil, fmt.Errorf("%w: %s in %s", domain.ErrRulePackNotFound, version, l.Dir)
}
