// redact маскирует идентификаторы и секреты перед записью в лог.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен: "al***@example.com".
// Короткая локальная часть и невалидный формат маскируются целиком.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	return mask(local) + "@" + domain
}

// Login оставляет первые две руны логина: "al***".
func Login(s string) string {
	return mask(s)
}

// Identifier маскирует то, что пользователь ввёл в поле «логин или email».
func Identifier(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}

	return Login(s)
}

func mask(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
