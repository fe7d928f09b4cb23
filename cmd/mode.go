package cmd

import (
	"fmt"

	"svccore/internal/controller"
	"svccore/pkg/logging"
)

var modeNames = map[string]controller.Mode{
	"NEVER":     controller.ModeNever,
	"ON_DEMAND": controller.ModeOnDemand,
	"PASSIVE":   controller.ModePassive,
	"ACTIVE":    controller.ModeActive,
	"REMOVE":    controller.ModeRemove,
}

// setMode resolves name in s's registry and applies the named mode to it.
func setMode(s *session, name, modeName string) error {
	mode, ok := modeNames[modeName]
	if !ok {
		return fmt.Errorf("unknown mode %q (want one of NEVER, ON_DEMAND, PASSIVE, ACTIVE, REMOVE)", modeName)
	}
	sc, err := s.registry.Get(name)
	if err != nil {
		return err
	}
	err = sc.SetMode(mode)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	audit := logging.AuditEvent{
		Action:    "set_mode",
		Outcome:   outcome,
		SessionID: s.auditID(),
		Target:    name,
		Details:   modeName,
	}
	if err != nil {
		audit.Error = err.Error()
	}
	logging.Audit(audit)

	return err
}
