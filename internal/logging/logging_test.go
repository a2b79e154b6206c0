package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetup(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	if err := Setup("debug"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s, want debug", logrus.GetLevel())
	}
	if err := Setup("loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}
