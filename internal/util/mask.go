package util

// MaskSecret deja visibles los primeros 6 caracteres de un handle opaco
// para poder correlacionar logs sin exponer el valor.
func MaskSecret(s string) string {
	const keep = 6
	if len(s) <= keep {
		return "***"
	}
	return s[:keep] + "…"
}
