package access

import (
	_ "embed"
	"fmt"

	"bantudesa/pkg/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Resource string

type Action string

const (
	ResourceActivity Resource = "activity"
	ResourceDonation Resource = "donation"

	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionCancel      Action = "cancel"
	ActionDelete      Action = "delete"
	ActionVerify      Action = "verify"
	ActionListPending Action = "list_pending"
)

var (
	//go:embed model.conf
	defaultModel string
	//go:embed policy.csv
	defaultPolicy string
)

var Module = fx.Module("access", fx.Provide(NewEnforcer, NewTokens))

// Authorizer answers whether an actor may perform action on resource.
type Authorizer interface {
	Allow(actor Actor, resource Resource, action Action) bool
}

type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads ACCESS_CONTROL.MODEL / POLICY files when set, otherwise
// the embedded defaults.
func NewEnforcer(cfg *config.Config) (Authorizer, error) {
	var (
		e   *casbin.SyncedEnforcer
		err error
	)

	if cfg != nil && cfg.AccessControl.Model != "" && cfg.AccessControl.Policy != "" {
		e, err = casbin.NewSyncedEnforcer(cfg.AccessControl.Model, cfg.AccessControl.Policy)
	} else {
		e, err = newDefaultEnforcer()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load access policy: %w", err)
	}

	return &Enforcer{enforcer: e}, nil
}

func newDefaultEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(defaultModel)
	if err != nil {
		return nil, err
	}
	return casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(defaultPolicy))
}

func (e *Enforcer) Allow(actor Actor, resource Resource, action Action) bool {
	if !actor.Authenticated() {
		return false
	}

	ok, err := e.enforcer.Enforce(string(actor.Role), string(resource), string(action))
	if err != nil {
		zap.L().Error("access check failed",
			zap.String("user_id", actor.UserID),
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return false
	}
	return ok
}
