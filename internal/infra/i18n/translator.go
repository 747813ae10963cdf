package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// DefaultLanguage backs every other locale: keys missing there fall back here.
const DefaultLanguage = "en"

type Translator struct {
	lang         string
	translations map[string]string
	fallback     map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys, layered over the
// default language file.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	base, err := readLocale(fsys, DefaultLanguage)
	if err != nil {
		return nil, err
	}
	if langCode == "" || langCode == DefaultLanguage {
		return &Translator{lang: DefaultLanguage, translations: base}, nil
	}
	own, err := readLocale(fsys, langCode)
	if err != nil {
		return nil, err
	}
	return &Translator{lang: langCode, translations: own, fallback: base}, nil
}

func readLocale(fsys fs.FS, langCode string) (map[string]string, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return parseLocale(data)
}

func parseLocale(data []byte) (map[string]string, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return translations, nil
}

// newTranslatorFromBytes builds a single-locale translator; used by tests.
func newTranslatorFromBytes(data []byte) (*Translator, error) {
	tr, err := parseLocale(data)
	if err != nil {
		return nil, err
	}
	return &Translator{lang: "test", translations: tr}, nil
}

// T returns the translation for key, formatted with args. Unknown keys come
// back verbatim so a missing string is visible rather than blank.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		format, ok = t.fallback[key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Language() string { return t.lang }
