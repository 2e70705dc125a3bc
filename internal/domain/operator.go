package domain

// OperatorRole представляет роль оператора кассы
type OperatorRole string

const (
	RoleAdmin   OperatorRole = "admin"   // Может менять тарифы и привязывать принтер
	RoleCashier OperatorRole = "cashier" // Регистрирует въезд/выезд и печатает билеты
)

// Operator - оператор кассы парковки
// Учетные данные задаются конфигурацией, в БД не хранятся
type Operator struct {
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"` // Никогда не возвращаем в JSON
	Role         OperatorRole `json:"role"`
}

// IsAdmin проверяет, является ли оператор администратором
func (o *Operator) IsAdmin() bool {
	return o.Role == RoleAdmin
}

// Validate проверяет корректность данных оператора
func (o *Operator) Validate() error {
	if o.Username == "" || o.PasswordHash == "" {
		return ErrInvalidCredentials
	}
	if o.Role != RoleAdmin && o.Role != RoleCashier {
		return ErrInvalidCredentials
	}
	return nil
}
