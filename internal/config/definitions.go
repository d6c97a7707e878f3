package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

// definitionsSchemaURL — идентификатор встроенной схемы ($id).
const definitionsSchemaURL = "https://github.com/Kargones/apk-notify/definitions.schema.json"

//go:embed definitions.schema.json
var definitionsSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	errSchema      error
)

// Definitions — содержимое файла определений: продукты, каналы, scope с получателями и алертами.
type Definitions struct {
	Products []string     `yaml:"products" json:"products,omitempty"`
	Channels []ChannelDef `yaml:"channels" json:"channels,omitempty"`
	Scopes   []ScopeDef   `yaml:"scopes" json:"scopes"`
}

// ChannelDef описывает канал. Пустой Kind — совпадает с Name, пустая Group — "default".
type ChannelDef struct {
	Name  string `yaml:"name" json:"name"`
	Kind  string `yaml:"kind" json:"kind,omitempty"`
	Group string `yaml:"group" json:"group,omitempty"`
}

// ScopeDef описывает scope, его группы получателей и алерты.
type ScopeDef struct {
	Name string `yaml:"name" json:"name"`

	// Groups — общие группы получателей.
	Groups map[string][]notify.Entity `yaml:"groups" json:"groups,omitempty"`

	// Entities — группы получателей конкретных сущностей по идентификатору из payload.
	Entities map[string]map[string][]notify.Entity `yaml:"entities" json:"entities,omitempty"`

	Alerts []AlertDef `yaml:"alerts" json:"alerts,omitempty"`
}

// AlertDef описывает алерт.
type AlertDef struct {
	Name      string          `yaml:"name" json:"name"`
	Notify    []NotifierDef   `yaml:"notify" json:"notify,omitempty"`
	Default   bool            `yaml:"default" json:"default,omitempty"`
	Defaults  map[string]bool `yaml:"defaults" json:"defaults,omitempty"`
	AppliesTo []string        `yaml:"appliesTo" json:"appliesTo,omitempty"`
	Tags      []string        `yaml:"tags" json:"tags,omitempty"`
}

// NotifierDef связывает группу получателей с каналом или группой каналов.
// Пустой Target — группа каналов "default".
type NotifierDef struct {
	Group  string `yaml:"group" json:"group"`
	Target string `yaml:"target" json:"target,omitempty"`
}

// LoadDefinitions читает файл определений и проверяет его по встроенной JSON Schema.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad,
			fmt.Sprintf("не удалось прочитать файл определений %s", path), err)
	}
	return ParseDefinitions(data)
}

// ParseDefinitions разбирает YAML определений и проверяет его по встроенной JSON Schema.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad, "определения: некорректный YAML", err)
	}
	if err := validateDefinitions(raw); err != nil {
		return nil, err
	}

	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad, "определения: некорректная структура", err)
	}
	return &defs, nil
}

// validateDefinitions проверяет документ по схеме. YAML переводится в JSON-модель
// (через encoding/json), чтобы числа и ключи имели типы, ожидаемые валидатором.
func validateDefinitions(raw any) error {
	schema, err := definitionsSchemaCompiled()
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigLoad, "определения: встроенная схема некорректна", err)
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigValidate, "определения: документ не представим в JSON", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigValidate, "определения: документ не представим в JSON", err)
	}
	if err := schema.Validate(inst); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigValidate, "определения не соответствуют схеме", err)
	}
	return nil
}

func definitionsSchemaCompiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(definitionsSchema))
		if err != nil {
			errSchema = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(definitionsSchemaURL, doc); err != nil {
			errSchema = err
			return
		}
		compiledSchema, errSchema = c.Compile(definitionsSchemaURL)
	})
	return compiledSchema, errSchema
}
