package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cucumber/godog"

	"github.com/cmformation/formation-portal/pkg/authenticator/authn"
	"github.com/cmformation/formation-portal/pkg/model"
	"github.com/cmformation/formation-portal/pkg/server/store"
	gormstore "github.com/cmformation/formation-portal/pkg/server/store/gorm"
)

// profilePassword is the password of every profile created by the steps
const profilePassword = "correct-horse-battery"

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	serverURL    string
	instance     *ServerInstance
	profiles     store.ProfilesStore
	response     *http.Response
	responseBody []byte
	authToken    string
	lastID       string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:        tc,
		serverURL: tc.ServerURL,
		profiles:  gormstore.NewProfilesStore(tc.DB),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.instance != nil {
			s.instance.Stop()
			s.instance = nil
		}
		return ctx, err
	})

	// Background steps
	sc.Step(`^the portal is running$`, s.thePortalIsRunning)
	sc.Step(`^a portal without WordPress is running$`, s.aPortalWithoutWordPressIsRunning)
	sc.Step(`^a profile "([^"]*)" exists with role "([^"]*)"$`, s.aProfileExistsWithRole)

	// Authentication steps
	sc.Step(`^I log in as "([^"]*)"$`, s.iLogInAs)
	sc.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, s.iLogInWithPassword)
	sc.Step(`^I am not logged in$`, s.iAmNotLoggedIn)

	// Request steps
	sc.Step(`^I send a (GET|POST|PUT|PATCH|DELETE) request to "([^"]*)"$`, s.iSendARequestTo)
	sc.Step(`^I send a (POST|PUT|PATCH) request to "([^"]*)" with body:$`, s.iSendARequestWithBody)
	sc.Step(`^I upload "([^"]*)" with content "([^"]*)" to "([^"]*)"$`, s.iUploadWithContentTo)
	sc.Step(`^I upload "([^"]*)" with content "([^"]*)" to "([^"]*)" with visibility "([^"]*)"$`, s.iUploadWithVisibility)
	sc.Step(`^I follow the signed URL$`, s.iFollowTheSignedURL)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response body should be "([^"]*)"$`, s.theResponseBodyShouldBe)
	sc.Step(`^the response body should contain "([^"]*)"$`, s.theResponseBodyShouldContain)
	sc.Step(`^the response body should not contain "([^"]*)"$`, s.theResponseBodyShouldNotContain)
	sc.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, s.theResponseHeaderShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, s.theJSONFieldShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should contain "([^"]*)"$`, s.theJSONFieldShouldContain)
	sc.Step(`^the response should list (\d+) items?$`, s.theResponseShouldListItems)
}

// Background steps

func (s *StepsContext) thePortalIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) aPortalWithoutWordPressIsRunning() error {
	instance, err := StartServer(s.tc, ServerConfig{WordPress: false})
	if err != nil {
		return err
	}
	s.instance = instance
	s.serverURL = instance.ServerURL
	return nil
}

// aProfileExistsWithRole creates the profile once and keeps its role current across scenarios
func (s *StepsContext) aProfileExistsWithRole(email, roleName string) error {
	role := model.Role(roleName)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", roleName)
	}

	profile, err := s.profiles.GetByEmail(email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		profile = &model.Profile{Email: email, FullName: email, Role: role}
		if err := s.profiles.Create(profile); err != nil {
			return err
		}
	case err != nil:
		return err
	case profile.Role != role:
		if _, err := s.profiles.Update(profile.ID, store.ProfileUpdate{Role: &role}); err != nil {
			return err
		}
	}

	hash, err := authn.HashPassword(profilePassword)
	if err != nil {
		return err
	}
	return s.profiles.SetPassword(profile.ID, hash)
}

// Authentication steps

func (s *StepsContext) iLogInAs(email string) error {
	if err := s.iLogInWithPassword(email, profilePassword); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("login as %s failed with %d: %s", email, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) iLogInWithPassword(email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	if err := s.do("POST", "/auth/login", "application/json", bytes.NewReader(body)); err != nil {
		return err
	}

	s.authToken = ""
	if s.response.StatusCode == http.StatusOK {
		var token struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(s.responseBody, &token); err != nil {
			return fmt.Errorf("failed to parse token response: %w", err)
		}
		s.authToken = token.AccessToken
	}
	return nil
}

func (s *StepsContext) iAmNotLoggedIn() error {
	s.authToken = ""
	return nil
}

// Request steps

func (s *StepsContext) iSendARequestTo(method, path string) error {
	return s.do(method, s.expand(path), "", nil)
}

func (s *StepsContext) iSendARequestWithBody(method, path string, body *godog.DocString) error {
	return s.do(method, s.expand(path), "application/json", strings.NewReader(body.Content))
}

func (s *StepsContext) iUploadWithContentTo(fileName, content, path string) error {
	return s.upload(fileName, content, path, nil)
}

func (s *StepsContext) iUploadWithVisibility(fileName, content, path, visibility string) error {
	return s.upload(fileName, content, path, map[string]string{"visibility": visibility})
}

func (s *StepsContext) upload(fileName, content, path string, fields map[string]string) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(part, content); err != nil {
		return err
	}
	if err := form.Close(); err != nil {
		return err
	}
	return s.do("POST", s.expand(path), form.FormDataContentType(), &buf)
}

// iFollowTheSignedURL fetches the url of the last response without credentials
func (s *StepsContext) iFollowTheSignedURL() error {
	var signed struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(s.responseBody, &signed); err != nil || signed.URL == "" {
		return fmt.Errorf("last response has no signed url: %s", string(s.responseBody))
	}

	resp, err := s.tc.HTTPClient.Get(signed.URL)
	if err != nil {
		return err
	}
	return s.record(resp)
}

// expand substitutes {last} with the id of the last created object
func (s *StepsContext) expand(path string) string {
	return strings.ReplaceAll(path, "{last}", s.lastID)
}

func (s *StepsContext) do(method, path, contentType string, body io.Reader) error {
	req, err := http.NewRequest(method, s.serverURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	return s.record(resp)
}

func (s *StepsContext) record(resp *http.Response) error {
	s.response = resp
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return err
	}
	s.responseBody = body

	if resp.StatusCode == http.StatusCreated {
		var created struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(body, &created) == nil && len(created.ID) > 0 {
			s.lastID = strings.Trim(string(created.ID), `"`)
		}
	}
	return nil
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldBe(expected string) error {
	actual := strings.TrimSpace(string(s.responseBody))
	if actual != expected {
		return fmt.Errorf("expected body %q, got %q", expected, actual)
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldContain(expected string) error {
	if !strings.Contains(string(s.responseBody), expected) {
		return fmt.Errorf("expected body to contain %q, got %q", expected, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldNotContain(unexpected string) error {
	if strings.Contains(string(s.responseBody), unexpected) {
		return fmt.Errorf("expected body not to contain %q, got %q", unexpected, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseHeaderShouldContain(name, expected string) error {
	actual := s.response.Header.Get(name)
	if !strings.Contains(actual, expected) {
		return fmt.Errorf("expected header %s to contain %q, got %q", name, expected, actual)
	}
	return nil
}

func (s *StepsContext) theJSONFieldShouldBe(path, expected string) error {
	actual, err := s.jsonField(path)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("expected %s to be %q, got %q", path, expected, actual)
	}
	return nil
}

func (s *StepsContext) theJSONFieldShouldContain(path, expected string) error {
	actual, err := s.jsonField(path)
	if err != nil {
		return err
	}
	if !strings.Contains(actual, expected) {
		return fmt.Errorf("expected %s to contain %q, got %q", path, expected, actual)
	}
	return nil
}

// jsonField formats the value at a dot separated path of the JSON body, e.g. "terms.province"
func (s *StepsContext) jsonField(path string) (string, error) {
	var value interface{}
	if err := json.Unmarshal(s.responseBody, &value); err != nil {
		return "", fmt.Errorf("response is not JSON: %w", err)
	}

	for _, key := range strings.Split(path, ".") {
		obj, ok := value.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("field %q: %v is not an object", key, value)
		}
		if value, ok = obj[key]; !ok {
			return "", fmt.Errorf("field %q is missing from %s", path, string(s.responseBody))
		}
	}
	return fmt.Sprint(value), nil
}

func (s *StepsContext) theResponseShouldListItems(count int) error {
	var items []json.RawMessage
	if err := json.Unmarshal(s.responseBody, &items); err != nil {
		return fmt.Errorf("response is not a JSON array: %w", err)
	}
	if len(items) != count {
		return fmt.Errorf("expected %d items, got %d: %s", count, len(items), string(s.responseBody))
	}
	return nil
}
