package dispatch

import "context"

// Причины пропуска доставки в плане.
const (
	SkipReasonProduct      = "алерт не относится к продукту"
	SkipReasonEmptyTarget  = "группа каналов пуста"
	SkipReasonNoRecipients = "нет подписанных получателей"
)

// Planned — доставка, которую выполнил бы Dispatch.
type Planned struct {
	Group      string   `json:"group"`
	Target     string   `json:"target"`
	Channel    string   `json:"channel,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	Dropped    int      `json:"dropped,omitempty"`
	Skipped    bool     `json:"skipped,omitempty"`
	SkipReason string   `json:"skip_reason,omitempty"`
}

// Plan проходит тот же путь, что Dispatch, но не вызывает каналы и не пишет метрики.
// Используется для dry-run: показывает, кому и через какие каналы ушло бы уведомление.
func (d *Dispatcher) Plan(ctx context.Context) ([]Planned, error) {
	a, err := d.Alert()
	if err != nil {
		return nil, err
	}

	if d.product != "" && !a.AppliesTo(d.product) {
		return []Planned{{Skipped: true, SkipReason: SkipReasonProduct}}, nil
	}

	var plan []Planned
	for _, group := range a.Groups() {
		target, _ := a.Target(group)
		channels, err := d.ChannelsFor(target)
		if err != nil {
			return nil, err
		}
		if len(channels) == 0 {
			plan = append(plan, Planned{Group: group, Target: target, Skipped: true, SkipReason: SkipReasonEmptyTarget})
			continue
		}

		recipients, err := d.Recipients(ctx, group)
		if err != nil {
			return nil, err
		}

		for _, ch := range channels {
			p := Planned{Group: group, Target: target, Channel: ch.Name()}
			filtered, err := d.filter(ctx, a, recipients, ch.Name())
			if err != nil {
				return nil, err
			}
			for _, r := range filtered {
				p.Recipients = append(p.Recipients, r.RecipientID())
			}
			p.Dropped = len(recipients) - len(filtered)
			if len(filtered) == 0 {
				p.Skipped = true
				p.SkipReason = SkipReasonNoRecipients
			}
			plan = append(plan, p)
		}
	}
	return plan, nil
}
