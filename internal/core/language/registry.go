// Package language maps the service-agnostic language code space onto each
// translation backend's native codes.
package language

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

//go:embed languages.yaml
var defaultTables []byte

type tablesFile struct {
	Languages []struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"languages"`
	Providers []struct {
		ID          string `yaml:"id"`
		DisplayName string `yaml:"display_name"`
		Codes       []struct {
			Code         string `yaml:"code"`
			ProviderCode string `yaml:"provider_code"`
		} `yaml:"codes"`
	} `yaml:"providers"`
}

type providerTable struct {
	displayName string
	order       []domain.LanguageCode
	forward     map[domain.LanguageCode]domain.ProviderCode
	inverse     map[domain.ProviderCode]domain.LanguageCode
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	order     []domain.LanguageCode
	names     map[domain.LanguageCode]string
	providers map[domain.Provider]*providerTable
}

// NewRegistry loads the built-in tables.
func NewRegistry() (*Registry, error) {
	return Load(defaultTables)
}

// MustNewRegistry is NewRegistry for package-level wiring and tests.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Load parses YAML tables. Every provider code must reference a known global
// code and map back to exactly one of them.
func Load(raw []byte) (*Registry, error) {
	var file tablesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse language tables: %w", err)
	}
	if len(file.Languages) == 0 {
		return nil, errors.New("language tables: no languages defined")
	}

	r := &Registry{
		names:     make(map[domain.LanguageCode]string, len(file.Languages)),
		providers: make(map[domain.Provider]*providerTable, len(file.Providers)),
	}
	for _, lang := range file.Languages {
		code := domain.LanguageCode(strings.TrimSpace(lang.Code))
		if code == "" {
			return nil, errors.New("language tables: empty language code")
		}
		if _, dup := r.names[code]; dup {
			return nil, fmt.Errorf("language tables: duplicate language %q", code)
		}
		r.names[code] = lang.Name
		r.order = append(r.order, code)
	}

	for _, p := range file.Providers {
		provider, ok := domain.ParseProvider(p.ID)
		if !ok {
			return nil, fmt.Errorf("language tables: unknown provider %q", p.ID)
		}
		table := &providerTable{
			displayName: p.DisplayName,
			forward:     make(map[domain.LanguageCode]domain.ProviderCode, len(p.Codes)),
			inverse:     make(map[domain.ProviderCode]domain.LanguageCode, len(p.Codes)),
		}
		for _, c := range p.Codes {
			code := domain.LanguageCode(c.Code)
			pc := domain.ProviderCode(c.ProviderCode)
			if _, known := r.names[code]; !known {
				return nil, fmt.Errorf("language tables: provider %s maps unknown language %q", provider, code)
			}
			if _, dup := table.inverse[pc]; dup {
				return nil, fmt.Errorf("language tables: provider %s maps %q twice", provider, pc)
			}
			if _, dup := table.forward[code]; dup {
				return nil, fmt.Errorf("language tables: provider %s lists %q twice", provider, code)
			}
			table.forward[code] = pc
			table.inverse[pc] = code
			table.order = append(table.order, code)
		}
		r.providers[provider] = table
	}
	return r, nil
}

// LanguageName falls back to the uppercased code.
func (r *Registry) LanguageName(code domain.LanguageCode) string {
	if name, ok := r.names[code]; ok {
		return name
	}
	return strings.ToUpper(string(code))
}

func (r *Registry) IsKnown(code domain.LanguageCode) bool {
	_, ok := r.names[code]
	return ok
}

func (r *Registry) ProviderCode(code domain.LanguageCode, provider domain.Provider) (domain.ProviderCode, error) {
	table, err := r.table(provider)
	if err != nil {
		return "", err
	}
	pc, ok := table.forward[code]
	if !ok {
		return "", domain.WrapError(
			domain.ErrUnsupportedLanguage,
			"provider code",
			fmt.Errorf("language %q (%s) is not supported by %s", code, r.LanguageName(code), table.displayName),
		)
	}
	return pc, nil
}

func (r *Registry) GlobalCode(pc domain.ProviderCode, provider domain.Provider) (domain.LanguageCode, error) {
	table, err := r.table(provider)
	if err != nil {
		return "", err
	}
	code, ok := table.inverse[pc]
	if !ok {
		return "", domain.WrapError(
			domain.ErrUnsupportedLanguage,
			"global code",
			fmt.Errorf("provider code %q is not known to %s", pc, table.displayName),
		)
	}
	return code, nil
}

// SupportedLanguages keeps table order; the first entry is the fallback choice.
func (r *Registry) SupportedLanguages(provider domain.Provider) []domain.LanguageCode {
	table, ok := r.providers[provider]
	if !ok {
		return nil
	}
	return append([]domain.LanguageCode(nil), table.order...)
}

func (r *Registry) IsSupported(code domain.LanguageCode, provider domain.Provider) bool {
	table, ok := r.providers[provider]
	if !ok {
		return false
	}
	_, ok = table.forward[code]
	return ok
}

func (r *Registry) LanguageOptions(provider domain.Provider) []domain.LanguageOption {
	codes := r.SupportedLanguages(provider)
	out := make([]domain.LanguageOption, 0, len(codes))
	for _, code := range codes {
		out = append(out, domain.LanguageOption{Code: code, Name: r.LanguageName(code)})
	}
	return out
}

// CommonLanguages returns codes supported by every provider, in global order.
func (r *Registry) CommonLanguages() []domain.LanguageCode {
	out := make([]domain.LanguageCode, 0)
	for _, code := range r.order {
		supported := len(r.providers) > 0
		for _, table := range r.providers {
			if _, ok := table.forward[code]; !ok {
				supported = false
				break
			}
		}
		if supported {
			out = append(out, code)
		}
	}
	return out
}

func (r *Registry) ServiceDisplayName(provider domain.Provider) string {
	if table, ok := r.providers[provider]; ok && table.displayName != "" {
		return table.displayName
	}
	return string(provider)
}

func (r *Registry) BackendOptions() []domain.BackendOption {
	out := make([]domain.BackendOption, 0, len(r.providers))
	for _, provider := range domain.Providers() {
		if _, ok := r.providers[provider]; !ok {
			continue
		}
		out = append(out, domain.BackendOption{ID: provider, Name: r.ServiceDisplayName(provider)})
	}
	return out
}

// NormalizeCode reduces tags such as "EN" or "zh-CN" to their base language.
func NormalizeCode(raw string) domain.LanguageCode {
	code := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.IndexAny(code, "-_"); idx >= 0 {
		code = code[:idx]
	}
	return domain.LanguageCode(code)
}

func (r *Registry) table(provider domain.Provider) (*providerTable, error) {
	table, ok := r.providers[provider]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "language registry", fmt.Errorf("unknown translation provider %q", provider))
	}
	return table, nil
}
