package harness

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/partio/partio-go/pkg/partio"
)

// Fixture values written by the suite.
const (
	TenantName            = "Test Tenant"
	TenantNameUpdated     = "Updated Tenant"
	UserEmail             = "test@test.com"
	UserEmailUpdated      = "updated@test.com"
	UserPassword          = "testpass"
	CredentialName        = "Test Key"
	CredentialNameUpdated = "Updated Key"
	EndpointModel         = "test-model"
	EndpointModelUpdated  = "test-model-updated"
	EndpointURL           = "http://localhost:11434"
	CompletionName        = "Test Inference"
	CompletionNameUpdated = "Updated Inference"

	// InvalidToken is sent by the unauthenticated request step.
	InvalidToken = "invalid-token"
)

// SuiteConfig configures a Suite.
type SuiteConfig struct {
	Endpoint      string
	AdminKey      string
	Timeout       time.Duration
	TLSSkipVerify bool

	// Transport overrides the HTTP transport of every client the suite
	// creates.
	Transport http.RoundTripper

	Logger hclog.Logger
}

// Suite is the ordered conformance sequence. Steps share State and must run
// in the order Steps returns them.
type Suite struct {
	cfg    SuiteConfig
	client *partio.Client
	logger hclog.Logger
	state  *State
}

// NewSuite creates a suite with an admin client for cfg.Endpoint.
func NewSuite(cfg SuiteConfig) (*Suite, error) {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	s := &Suite{
		cfg:    cfg,
		logger: cfg.Logger.Named("suite"),
		state:  &State{},
	}

	client, err := s.newClient(cfg.AdminKey)
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

func (s *Suite) newClient(key string) (*partio.Client, error) {
	client, err := partio.NewClient(&partio.Config{
		BaseURL:       s.cfg.Endpoint,
		AccessKey:     key,
		Timeout:       s.cfg.Timeout,
		TLSSkipVerify: s.cfg.TLSSkipVerify,
		Transport:     s.cfg.Transport,
		Logger:        s.cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating client: %w", err)
	}
	return client, nil
}

// Client returns the admin client.
func (s *Suite) Client() *partio.Client {
	return s.client
}

// State returns the identifiers recorded so far.
func (s *Suite) State() *State {
	return s.state
}

// Close releases the admin client.
func (s *Suite) Close() error {
	return s.client.Close()
}

// Run executes every step with r and returns the summary.
func (s *Suite) Run(ctx context.Context, r *Runner) Summary {
	return r.RunAll(ctx, s.Steps())
}

// Steps returns the conformance sequence in execution order.
func (s *Suite) Steps() []Step {
	var steps []Step
	steps = append(steps,
		Step{"Health Check", s.health},
		Step{"Who Am I", s.whoAmI},
	)
	steps = append(steps, s.tenantSteps()...)
	steps = append(steps, s.userSteps()...)
	steps = append(steps, s.credentialSteps()...)
	steps = append(steps, s.embeddingEndpointSteps()...)
	steps = append(steps, s.completionEndpointSteps()...)
	steps = append(steps, s.processSteps()...)
	steps = append(steps, s.requestHistorySteps()...)
	steps = append(steps,
		Step{"Unauthenticated Request (401)", s.unauthenticated},
		Step{"Non-existent Resource (404)", s.notFound},
	)
	steps = append(steps, s.cleanupSteps()...)
	return steps
}

func (s *Suite) health(ctx context.Context) error {
	status, err := s.client.Health(ctx)
	if err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("no health response")
	}
	if !status.Healthy() {
		return fmt.Errorf("not healthy: %s", status.Status)
	}
	return nil
}

func (s *Suite) whoAmI(ctx context.Context) error {
	who, err := s.client.WhoAmI(ctx)
	if err != nil {
		return err
	}
	if who == nil || who.Role == "" {
		return fmt.Errorf("no role")
	}
	return nil
}

func (s *Suite) tenantSteps() []Step {
	tenants := s.client.Tenants()
	return []Step{
		{"Create Tenant", func(ctx context.Context) error {
			tenant, err := tenants.Create(ctx, &partio.Tenant{
				Name:   TenantName,
				Labels: []string{"test"},
			})
			if err != nil {
				return err
			}
			if tenant == nil || tenant.ID == "" {
				return fmt.Errorf("no tenant ID in response")
			}
			s.state.TenantID = tenant.ID
			return nil
		}},
		{"Read Tenant", func(ctx context.Context) error {
			if err := need("tenant", s.state.TenantID); err != nil {
				return err
			}
			tenant, err := tenants.Get(ctx, s.state.TenantID)
			if err != nil {
				return err
			}
			if tenant == nil || tenant.Name != TenantName {
				return fmt.Errorf("tenant mismatch")
			}
			return nil
		}},
		{"Update Tenant", func(ctx context.Context) error {
			if err := need("tenant", s.state.TenantID); err != nil {
				return err
			}
			updated, err := tenants.Update(ctx, s.state.TenantID, &partio.Tenant{Name: TenantNameUpdated})
			if err != nil {
				return err
			}
			if updated == nil || updated.Name != TenantNameUpdated {
				return fmt.Errorf("update failed")
			}
			return sameID("tenant", s.state.TenantID, updated.ID)
		}},
		existsStep("Tenant Exists (HEAD)", "tenant", &s.state.TenantID, tenants.Exists),
		enumerateStep("Enumerate Tenants", "tenant", &s.state.TenantID, tenants, func(t *partio.Tenant) string { return t.ID }),
	}
}

func (s *Suite) userSteps() []Step {
	users := s.client.Users()
	return []Step{
		{"Create User", func(ctx context.Context) error {
			if err := need("tenant", s.state.TenantID); err != nil {
				return err
			}
			user, err := users.Create(ctx, &partio.User{
				TenantID: s.state.TenantID,
				Email:    UserEmail,
				Password: UserPassword,
			})
			if err != nil {
				return err
			}
			if user == nil || user.ID == "" {
				return fmt.Errorf("no user ID in response")
			}
			s.state.UserID = user.ID
			return nil
		}},
		{"Read User", func(ctx context.Context) error {
			if err := need("user", s.state.UserID); err != nil {
				return err
			}
			user, err := users.Get(ctx, s.state.UserID)
			if err != nil {
				return err
			}
			if user == nil || user.Email != UserEmail {
				return fmt.Errorf("user mismatch")
			}
			return nil
		}},
		{"Update User", func(ctx context.Context) error {
			if err := need("user", s.state.UserID); err != nil {
				return err
			}
			updated, err := users.Update(ctx, s.state.UserID, &partio.User{
				TenantID: s.state.TenantID,
				Email:    UserEmailUpdated,
			})
			if err != nil {
				return err
			}
			if updated == nil || updated.Email != UserEmailUpdated {
				return fmt.Errorf("update failed")
			}
			return sameID("user", s.state.UserID, updated.ID)
		}},
		existsStep("User Exists (HEAD)", "user", &s.state.UserID, users.Exists),
		enumerateStep("Enumerate Users", "user", &s.state.UserID, users, func(u *partio.User) string { return u.ID }),
	}
}

func (s *Suite) credentialSteps() []Step {
	creds := s.client.Credentials()
	return []Step{
		{"Create Credential", func(ctx context.Context) error {
			if err := need("user", s.state.UserID); err != nil {
				return err
			}
			cred, err := creds.Create(ctx, &partio.Credential{
				TenantID: s.state.TenantID,
				UserID:   s.state.UserID,
				Name:     CredentialName,
			})
			if err != nil {
				return err
			}
			if cred == nil || cred.ID == "" {
				return fmt.Errorf("no credential ID in response")
			}
			s.state.CredentialID = cred.ID
			return nil
		}},
		{"Read Credential", func(ctx context.Context) error {
			if err := need("credential", s.state.CredentialID); err != nil {
				return err
			}
			cred, err := creds.Get(ctx, s.state.CredentialID)
			if err != nil {
				return err
			}
			if cred == nil || cred.Name != CredentialName {
				return fmt.Errorf("credential mismatch")
			}
			return nil
		}},
		{"Update Credential", func(ctx context.Context) error {
			if err := need("credential", s.state.CredentialID); err != nil {
				return err
			}
			updated, err := creds.Update(ctx, s.state.CredentialID, &partio.Credential{
				TenantID: s.state.TenantID,
				UserID:   s.state.UserID,
				Name:     CredentialNameUpdated,
			})
			if err != nil {
				return err
			}
			if updated == nil || updated.Name != CredentialNameUpdated {
				return fmt.Errorf("update failed")
			}
			return sameID("credential", s.state.CredentialID, updated.ID)
		}},
		existsStep("Credential Exists (HEAD)", "credential", &s.state.CredentialID, creds.Exists),
		enumerateStep("Enumerate Credentials", "credential", &s.state.CredentialID, creds,
			func(c *partio.Credential) string { return c.ID }),
	}
}

func (s *Suite) embeddingEndpointSteps() []Step {
	eps := s.client.EmbeddingEndpoints()
	return []Step{
		{"Create Endpoint", func(ctx context.Context) error {
			if err := need("tenant", s.state.TenantID); err != nil {
				return err
			}
			ep, err := eps.Create(ctx, partio.NewEmbeddingEndpoint(
				s.state.TenantID, EndpointModel, EndpointURL, partio.APIFormatOllama))
			if err != nil {
				return err
			}
			if ep == nil || ep.ID == "" {
				return fmt.Errorf("no endpoint ID in response")
			}
			s.state.EmbeddingEndpointID = ep.ID
			return nil
		}},
		{"Read Endpoint", func(ctx context.Context) error {
			if err := need("embedding endpoint", s.state.EmbeddingEndpointID); err != nil {
				return err
			}
			ep, err := eps.Get(ctx, s.state.EmbeddingEndpointID)
			if err != nil {
				return err
			}
			if ep == nil || ep.Model != EndpointModel {
				return fmt.Errorf("endpoint mismatch")
			}
			return nil
		}},
		{"Update Endpoint", func(ctx context.Context) error {
			if err := need("embedding endpoint", s.state.EmbeddingEndpointID); err != nil {
				return err
			}
			updated, err := eps.Update(ctx, s.state.EmbeddingEndpointID, partio.NewEmbeddingEndpoint(
				s.state.TenantID, EndpointModelUpdated, EndpointURL, partio.APIFormatOllama))
			if err != nil {
				return err
			}
			if updated == nil || updated.Model != EndpointModelUpdated {
				return fmt.Errorf("update failed")
			}
			return sameID("embedding endpoint", s.state.EmbeddingEndpointID, updated.ID)
		}},
		existsStep("Endpoint Exists (HEAD)", "embedding endpoint", &s.state.EmbeddingEndpointID, eps.Exists),
		enumerateStep("Enumerate Endpoints", "embedding endpoint", &s.state.EmbeddingEndpointID, eps.Collection,
			func(e *partio.EmbeddingEndpoint) string { return e.ID }),
		{"Endpoint Health", func(ctx context.Context) error {
			if err := need("embedding endpoint", s.state.EmbeddingEndpointID); err != nil {
				return err
			}
			status, err := eps.Health(ctx, s.state.EmbeddingEndpointID)
			if partio.IsNotFound(err) {
				return SkipStep("endpoint health is not monitored")
			}
			if err != nil {
				return err
			}
			if status == nil {
				return fmt.Errorf("no health response")
			}
			return nil
		}},
	}
}

func (s *Suite) completionEndpointSteps() []Step {
	ceps := s.client.CompletionEndpoints()
	return []Step{
		{"Create Completion Endpoint", func(ctx context.Context) error {
			if err := need("tenant", s.state.TenantID); err != nil {
				return err
			}
			cep, err := ceps.Create(ctx, &partio.CompletionEndpoint{
				TenantID:  s.state.TenantID,
				Name:      CompletionName,
				Model:     EndpointModel,
				Endpoint:  EndpointURL,
				APIFormat: partio.APIFormatOllama,
			})
			if err != nil {
				return err
			}
			if cep == nil || cep.ID == "" {
				return fmt.Errorf("no completion endpoint ID in response")
			}
			s.state.CompletionEndpointID = cep.ID
			return nil
		}},
		{"Read Completion Endpoint", func(ctx context.Context) error {
			if err := need("completion endpoint", s.state.CompletionEndpointID); err != nil {
				return err
			}
			cep, err := ceps.Get(ctx, s.state.CompletionEndpointID)
			if err != nil {
				return err
			}
			if cep == nil || cep.Model != EndpointModel {
				return fmt.Errorf("endpoint mismatch")
			}
			return nil
		}},
		{"Update Completion Endpoint", func(ctx context.Context) error {
			if err := need("completion endpoint", s.state.CompletionEndpointID); err != nil {
				return err
			}
			updated, err := ceps.Update(ctx, s.state.CompletionEndpointID, &partio.CompletionEndpoint{
				TenantID:  s.state.TenantID,
				Name:      CompletionNameUpdated,
				Model:     EndpointModelUpdated,
				Endpoint:  EndpointURL,
				APIFormat: partio.APIFormatOllama,
			})
			if err != nil {
				return err
			}
			if updated == nil || updated.Name != CompletionNameUpdated {
				return fmt.Errorf("update failed")
			}
			return sameID("completion endpoint", s.state.CompletionEndpointID, updated.ID)
		}},
		existsStep("Completion Endpoint Exists (HEAD)", "completion endpoint", &s.state.CompletionEndpointID, ceps.Exists),
		enumerateStep("Enumerate Completion Endpoints", "completion endpoint", &s.state.CompletionEndpointID, ceps.Collection,
			func(e *partio.CompletionEndpoint) string { return e.ID }),
	}
}

func (s *Suite) requestHistorySteps() []Step {
	history := s.client.RequestHistory()
	var entryID string
	return []Step{
		{"Enumerate Request History", func(ctx context.Context) error {
			page, err := history.Enumerate(ctx, nil)
			if err != nil {
				return err
			}
			if page == nil {
				return fmt.Errorf("no response")
			}
			if len(page.Data) > 0 {
				entryID = page.Data[0].ID
			}
			return nil
		}},
		{"Read Request History", func(ctx context.Context) error {
			if entryID == "" {
				return SkipStep("no request history recorded")
			}
			entry, err := history.Get(ctx, entryID)
			if err != nil {
				return err
			}
			if entry == nil || entry.ID != entryID {
				return fmt.Errorf("history entry mismatch")
			}
			return nil
		}},
		{"Read Request History Detail", func(ctx context.Context) error {
			if entryID == "" {
				return SkipStep("no request history recorded")
			}
			_, err := history.GetDetail(ctx, entryID)
			if partio.IsNotFound(err) {
				return SkipStep("no detail captured for history entry")
			}
			return err
		}},
	}
}

func (s *Suite) unauthenticated(ctx context.Context) error {
	noAuth, err := s.newClient(InvalidToken)
	if err != nil {
		return err
	}
	defer noAuth.Close()

	_, err = noAuth.Tenants().Enumerate(ctx, nil)
	return expectStatus(err, http.StatusUnauthorized)
}

func (s *Suite) notFound(ctx context.Context) error {
	_, err := s.client.Tenants().Get(ctx, "nonexistent-"+uuid.NewString())
	return expectStatus(err, http.StatusNotFound)
}

func (s *Suite) cleanupSteps() []Step {
	return []Step{
		deleteStep("Delete Completion Endpoint", "completion endpoint", &s.state.CompletionEndpointID,
			s.client.CompletionEndpoints().Collection),
		deleteStep("Delete Endpoint", "embedding endpoint", &s.state.EmbeddingEndpointID,
			s.client.EmbeddingEndpoints().Collection),
		deleteStep("Delete Credential", "credential", &s.state.CredentialID, s.client.Credentials()),
		deleteStep("Delete User", "user", &s.state.UserID, s.client.Users()),
		deleteStep("Delete Tenant", "tenant", &s.state.TenantID, s.client.Tenants()),
	}
}

// expectStatus passes only when err is a client error with the given status.
func expectStatus(err error, status int) error {
	if err == nil {
		return fmt.Errorf("expected %d", status)
	}
	if got := partio.StatusCode(err); got != status {
		return fmt.Errorf("expected %d, got %d: %w", status, got, err)
	}
	return nil
}

func existsStep(name, kind string, id *string, exists func(context.Context, string) (bool, error)) Step {
	return Step{name, func(ctx context.Context) error {
		if err := need(kind, *id); err != nil {
			return err
		}
		ok, err := exists(ctx, *id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s should exist", kind)
		}
		return nil
	}}
}

// enumerateStep lists every page of col without a filter and requires the
// resource created earlier in the run to be among the records.
func enumerateStep[T any](name, kind string, id *string, col *partio.Collection[T], idOf func(*T) string) Step {
	return Step{name, func(ctx context.Context) error {
		if err := need(kind, *id); err != nil {
			return err
		}
		all, err := col.EnumerateAll(ctx, nil)
		if err != nil {
			return err
		}
		for i := range all {
			if idOf(&all[i]) == *id {
				return nil
			}
		}
		return fmt.Errorf("%s %s missing from %d enumerated records", kind, *id, len(all))
	}}
}

// sameID fails when an update response reports a different ID. An update
// response without an ID is accepted.
func sameID(kind, want, got string) error {
	if got != "" && got != want {
		return fmt.Errorf("update changed %s ID from %s to %s", kind, want, got)
	}
	return nil
}

// deleteStep deletes the resource and verifies it is gone through both the
// existence check and a read.
func deleteStep[T any](name, kind string, id *string, col *partio.Collection[T]) Step {
	return Step{name, func(ctx context.Context) error {
		if err := need(kind, *id); err != nil {
			return err
		}
		if err := col.Delete(ctx, *id); err != nil {
			return err
		}

		exists, err := col.Exists(ctx, *id)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%s still exists after delete", kind)
		}

		_, err = col.Get(ctx, *id)
		if err := expectStatus(err, http.StatusNotFound); err != nil {
			return fmt.Errorf("read after delete: %w", err)
		}
		return nil
	}}
}
