package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/policonsole/internal/directory/models"
)

// Test agent created by the directory bootstrap so a fresh installation can
// be signed into.
const (
	TestAgentNIP      = "12345"
	TestAgentEmail    = "agente@policialocal.test"
	TestAgentPassword = "12345"
)

// TestAgent returns the seed row for the test agent.
func TestAgent() *models.Agent {
	return &models.Agent{
		NIP:       TestAgentNIP,
		FirstName: "Agente",
		LastName1: "De",
		LastName2: "Prueba",
		Email:     TestAgentEmail,
		Active:    true,
		Monitor:   true,
	}
}

// SeedTestAgent upserts the test agent and resets its password. Running it
// again restores the known password.
func (s *AgentService) SeedTestAgent(ctx context.Context) error {
	if err := s.UpsertAgent(ctx, TestAgent()); err != nil {
		return fmt.Errorf("error seeding test agent: %w", err)
	}
	if err := s.SetPassword(ctx, TestAgentNIP, TestAgentPassword); err != nil {
		return fmt.Errorf("error setting test agent password: %w", err)
	}
	return nil
}
