package notify

// Entity — простой получатель с адресами по каналам и произвольными атрибутами.
// Используется статическим резолвером и в тестах.
type Entity struct {
	ID         string            `yaml:"id" json:"id"`
	Name       string            `yaml:"name,omitempty" json:"name,omitempty"`
	Addresses  map[string]string `yaml:"addresses,omitempty" json:"addresses,omitempty"`
	Attributes map[string]any    `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// RecipientID реализует Recipient.
func (e Entity) RecipientID() string {
	return e.ID
}

// Address реализует Addressable.
func (e Entity) Address(channel string) (string, bool) {
	addr, ok := e.Addresses[channel]
	return addr, ok && addr != ""
}

// AddressesFor собирает адреса получателей для канала, пропуская получателей без адреса.
// Порядок сохраняется.
func AddressesFor(recipients []Recipient, channel string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		a, ok := r.(Addressable)
		if !ok {
			continue
		}
		if addr, ok := a.Address(channel); ok {
			out = append(out, addr)
		}
	}
	return out
}
