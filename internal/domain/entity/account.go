package entity

// Account cuenta de socio/usuario del servicio. Propiedad del módulo de cuentas (solo lectura aquí).
type Account struct {
	ID       string
	TenantID string
	Number   string
	PersonID string
	Active   bool
}

// Person titular de una cuenta (módulo de personas/KYC, solo lectura aquí).
type Person struct {
	ID       string
	TenantID string
	FullName string
	Document string
}
