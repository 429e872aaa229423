package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLang = "en"

type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the translation for key, or the key itself when it is missing.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Lang() string { return t.lang }

// Catalog holds one translator per available language.
type Catalog struct {
	langs   []*Translator // DefaultLang first
	matcher language.Matcher
}

// NewCatalog loads every locales/*.yaml in fsys. DefaultLang must be present.
func NewCatalog(fsys fs.FS) (*Catalog, error) {
	files, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, err
	}
	c := &Catalog{}
	var tags []language.Tag
	for _, f := range files {
		lang := strings.TrimSuffix(path.Base(f), ".yaml")
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("locale file %s: %w", f, err)
		}
		t, err := NewTranslator(fsys, lang)
		if err != nil {
			return nil, err
		}
		if lang == DefaultLang {
			c.langs = append([]*Translator{t}, c.langs...)
			tags = append([]language.Tag{tag}, tags...)
			continue
		}
		c.langs = append(c.langs, t)
		tags = append(tags, tag)
	}
	if len(c.langs) == 0 || c.langs[0].Lang() != DefaultLang {
		return nil, fmt.Errorf("locale %q missing", DefaultLang)
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

// MustCatalog loads the embedded locales.
func MustCatalog() *Catalog {
	c, err := NewCatalog(LocalesFS)
	if err != nil {
		panic(err)
	}
	return c
}

// Match picks a translator for an Accept-Language header. Unsupported or
// unparsable headers get DefaultLang.
func (c *Catalog) Match(acceptLanguage string) *Translator {
	_, i := language.MatchStrings(c.matcher, acceptLanguage)
	return c.langs[i]
}
