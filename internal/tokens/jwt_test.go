package tokens_test

import (
	"testing"

	"github.com/open-climate-tech/firecam/internal/tokens"
)

func TestServiceTokenGeneration(t *testing.T) {
	mgr := tokens.NewManager("test-secret-key")
	serviceID := "detector-west-1"
	fleetGroup := "norcal"

	token, err := mgr.GenerateServiceToken(serviceID, fleetGroup)
	if err != nil {
		t.Fatalf("Failed to generate service token: %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.ServiceID != serviceID {
		t.Errorf("ServiceID = %s; want %s", claims.ServiceID, serviceID)
	}
	if claims.FleetGroup != fleetGroup {
		t.Errorf("FleetGroup = %s; want %s", claims.FleetGroup, fleetGroup)
	}
}

func TestInvalidSignature(t *testing.T) {
	mgr1 := tokens.NewManager("secret-1")
	mgr2 := tokens.NewManager("secret-2")

	token, _ := mgr1.GenerateServiceToken("svc1", "group1")
	_, err := mgr2.ValidateToken(token)
	if err == nil {
		t.Error("Expected validation error for wrong signature")
	}
}
