package registry

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

// Scope — домен, которому принадлежат алерты.
// Сам scope не разрешает получателей: это делает внешний Resolver,
// привязанный к имени scope при регистрации.
type Scope struct {
	name        string
	resolver    notify.Resolver
	payloadType reflect.Type
}

// Name возвращает имя scope.
func (s *Scope) Name() string { return s.name }

// Resolver возвращает резолвер получателей scope (может быть nil).
func (s *Scope) Resolver() notify.Resolver { return s.resolver }

// PayloadType возвращает тип payload, объявленный при регистрации, или nil.
func (s *Scope) PayloadType() reflect.Type { return s.payloadType }

// IDAccessor возвращает имя поля или метода payload, связывающего payload с сущностью:
// CamelCase имени scope + "ID" (scope "post" → "PostID").
func (s *Scope) IDAccessor() string {
	return camelCase(s.name) + "ID"
}

// IDKey возвращает ключ идентификатора для map payload: "<scope>_id".
func (s *Scope) IDKey() string {
	return s.name + "_id"
}

// EntityID извлекает идентификатор сущности из payload:
// метод или поле IDAccessor() у struct payload, ключ IDKey() у map payload.
func (s *Scope) EntityID(payload any) (any, error) {
	if payload == nil {
		return nil, apperrors.Newf(apperrors.ErrConfigInvalidScope, "scope %s: payload is nil", s.name)
	}

	if m, ok := payload.(map[string]any); ok {
		v, found := m[s.IDKey()]
		if !found {
			return nil, apperrors.Newf(apperrors.ErrConfigInvalidScope, "scope %s: в payload нет ключа %s", s.name, s.IDKey())
		}
		return v, nil
	}

	v := reflect.ValueOf(payload)
	if m := v.MethodByName(s.IDAccessor()); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() >= 1 {
		return m.Call(nil)[0].Interface(), nil
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, apperrors.Newf(apperrors.ErrConfigInvalidScope, "scope %s: payload is nil", s.name)
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Struct {
		if f := v.FieldByName(s.IDAccessor()); f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
		// метод с pointer receiver у payload, переданного по значению
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		if m := ptr.MethodByName(s.IDAccessor()); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() >= 1 {
			return m.Call(nil)[0].Interface(), nil
		}
	}
	return nil, apperrors.Newf(apperrors.ErrConfigInvalidScope,
		"scope %s: payload %T не содержит %s", s.name, payload, s.IDAccessor())
}

// validatePayloadType проверяет, что тип payload позволяет получить идентификатор сущности.
func (s *Scope) validatePayloadType() error {
	t := s.payloadType
	if t == nil {
		return nil
	}

	accessor := s.IDAccessor()
	if _, ok := t.MethodByName(accessor); ok {
		return nil
	}
	if t.Kind() != reflect.Pointer {
		if _, ok := reflect.PointerTo(t).MethodByName(accessor); ok {
			return nil
		}
	}

	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	switch base.Kind() {
	case reflect.Struct:
		if f, ok := base.FieldByName(accessor); ok && f.IsExported() {
			return nil
		}
	case reflect.Map:
		if base.Key().Kind() == reflect.String {
			return nil
		}
	}

	return apperrors.Newf(apperrors.ErrConfigInvalidScope,
		"тип payload %s scope %s не содержит поля или метода %s", t, s.name, accessor)
}

// ScopeOption настраивает scope при регистрации.
type ScopeOption func(*Scope)

// WithPayload объявляет тип payload scope по прототипу значения.
// Тип проверяется сразу при регистрации.
func WithPayload(prototype any) ScopeOption {
	return func(s *Scope) {
		if prototype != nil {
			s.payloadType = reflect.TypeOf(prototype)
		}
	}
}

// camelCase переводит snake/kebab имя в CamelCase: "user_group" → "UserGroup".
func camelCase(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	var b strings.Builder
	for _, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(p[size:])
	}
	return b.String()
}

// String для удобства логов.
func (s *Scope) String() string {
	return fmt.Sprintf("scope(%s)", s.name)
}
