package data

import (
	"github.com/pinetree-ops/shiftlog/internal/biz/repo"
)

// Repositories contains all repositories
type Repositories struct {
	Event   repo.EventRepo
	Pending repo.PendingStatusRepo
	Viber   *ViberRepo
	Slack   *SlackRepo
}

// Options configures NewRepositories
type Options struct {
	DBPath          string
	ViberToken      string
	ViberSenderName string
	ViberAPIURL     string
	SlackBotToken   string
}

// NewRepositories creates all repositories
func NewRepositories(opts Options) (*Repositories, error) {
	eventRepo, err := NewEventRepo(opts.DBPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Event:   eventRepo,
		Pending: NewPendingStatusRepo(),
		Viber:   NewViberRepo(opts.ViberToken, opts.ViberSenderName, opts.ViberAPIURL),
		Slack:   NewSlackRepo(opts.SlackBotToken),
	}, nil
}

// Close releases the database
func (r *Repositories) Close() error {
	return r.Event.Close()
}
