package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// InvitePolicy controls which roles invite codes may carry and how long they live.
type InvitePolicy struct {
	AllowedRoles []string      `mapstructure:"allowedRoles"`
	DefaultTTL   time.Duration `mapstructure:"defaultTTL"`
	MaxTTL       time.Duration `mapstructure:"maxTTL"`
}

func DefaultInvitePolicy() InvitePolicy {
	return InvitePolicy{
		AllowedRoles: []string{"EVENT_STAFF", "CHECKIN_STAFF", "ORGANIZER", "ADMIN"},
		DefaultTTL:   24 * time.Hour,
		MaxTTL:       30 * 24 * time.Hour,
	}
}

// AllowsRole reports whether role (already normalized) is issuable.
func (p InvitePolicy) AllowsRole(role string) bool {
	for _, r := range p.AllowedRoles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}

type InvitePolicyHolder struct {
	current atomic.Value // holds InvitePolicy
}

// NewStaticInvitePolicyHolder returns a holder that never reloads.
func NewStaticInvitePolicyHolder(policy InvitePolicy) *InvitePolicyHolder {
	holder := &InvitePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewInvitePolicyHolder() (*InvitePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("invites")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/tixora/config")
	v.AddConfigPath("/etc/tixora")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TIXORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInvitePolicy()
	v.SetDefault("invites.allowedRoles", defaults.AllowedRoles)
	v.SetDefault("invites.defaultTTL", defaults.DefaultTTL)
	v.SetDefault("invites.maxTTL", defaults.MaxTTL)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watch = false
	}

	var policy InvitePolicy
	if err := v.UnmarshalKey("invites", &policy); err != nil {
		return nil, err
	}
	policy = normalizeInvitePolicy(policy)
	if err := validateInvitePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticInvitePolicyHolder(policy)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InvitePolicy
		if err := v.UnmarshalKey("invites", &updated); err != nil {
			log.Printf("[invite-policy] reload failed: %v", err)
			return
		}
		updated = normalizeInvitePolicy(updated)
		if err := validateInvitePolicy(updated); err != nil {
			log.Printf("[invite-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[invite-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *InvitePolicyHolder) Get() InvitePolicy {
	return h.current.Load().(InvitePolicy)
}

func normalizeInvitePolicy(p InvitePolicy) InvitePolicy {
	roles := make([]string, 0, len(p.AllowedRoles))
	for _, r := range p.AllowedRoles {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		roles = append(roles, r)
	}
	p.AllowedRoles = roles
	return p
}

func validateInvitePolicy(p InvitePolicy) error {
	if len(p.AllowedRoles) == 0 {
		return errors.New("invites.allowedRoles cannot be empty")
	}
	if p.DefaultTTL <= 0 {
		return errors.New("invites.defaultTTL must be positive")
	}
	if p.MaxTTL < p.DefaultTTL {
		return errors.New("invites.maxTTL must be >= invites.defaultTTL")
	}
	return nil
}
