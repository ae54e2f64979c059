package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx platform API response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client calls the platform's project REST API with a bearer token. The
// session client shares only the project/participant identifiers with
// this surface; neither depends on the other.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

/*** Projects ***/

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	return out, c.do(ctx, http.MethodGet, "/projects", nil, nil, &out)
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodPost, "/projects", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, projectID string, req UpdateProjectRequest) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodPut, "/projects/"+projectID, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+projectID, nil, nil, nil)
}

func (c *Client) SearchProjects(ctx context.Context, query string) ([]Project, error) {
	var out []Project
	return out, c.do(ctx, http.MethodGet, "/projects/search", url.Values{"q": {query}}, nil, &out)
}

func (c *Client) ForkProject(ctx context.Context, projectID string) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodPost, "/projects/"+projectID+"/fork", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProjectStats(ctx context.Context, projectID string) (*ProjectStats, error) {
	var out ProjectStats
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID+"/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetActivity(ctx context.Context, projectID string) ([]Activity, error) {
	var out []Activity
	return out, c.do(ctx, http.MethodGet, "/projects/"+projectID+"/activity", nil, nil, &out)
}

/*** Files ***/

func (c *Client) ListFiles(ctx context.Context, projectID string) ([]ProjectFile, error) {
	var out []ProjectFile
	return out, c.do(ctx, http.MethodGet, "/projects/"+projectID+"/files", nil, nil, &out)
}

func (c *Client) GetFileContent(ctx context.Context, projectID, path string) (string, error) {
	var out FileContent
	err := c.do(ctx, http.MethodGet, "/projects/"+projectID+"/files/content",
		url.Values{"path": {path}}, nil, &out)
	return out.Content, err
}

func (c *Client) SaveFileContent(ctx context.Context, projectID, path, content string) error {
	return c.do(ctx, http.MethodPut, "/projects/"+projectID+"/files/content", nil,
		FileContent{Path: path, Content: content}, nil)
}

func (c *Client) CreateFile(ctx context.Context, projectID, path, content string) error {
	return c.do(ctx, http.MethodPost, "/projects/"+projectID+"/files", nil,
		FileContent{Path: path, Content: content}, nil)
}

func (c *Client) DeleteFile(ctx context.Context, projectID, path string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+projectID+"/files",
		url.Values{"path": {path}}, nil, nil)
}

/*** Collaborators ***/

func (c *Client) ListCollaborators(ctx context.Context, projectID string) ([]Collaborator, error) {
	var out []Collaborator
	return out, c.do(ctx, http.MethodGet, "/projects/"+projectID+"/collaborators", nil, nil, &out)
}

func (c *Client) AddCollaborator(ctx context.Context, projectID, email, role string) (*Collaborator, error) {
	body := map[string]string{"email": email, "role": role}
	var out Collaborator
	if err := c.do(ctx, http.MethodPost, "/projects/"+projectID+"/collaborators", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCollaboratorRole(ctx context.Context, projectID, userID, role string) error {
	return c.do(ctx, http.MethodPut, "/projects/"+projectID+"/collaborators/"+userID, nil,
		map[string]string{"role": role}, nil)
}

func (c *Client) RemoveCollaborator(ctx context.Context, projectID, userID string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+projectID+"/collaborators/"+userID, nil, nil, nil)
}

/*** Versions ***/

func (c *Client) ListVersions(ctx context.Context, projectID string) ([]Version, error) {
	var out []Version
	return out, c.do(ctx, http.MethodGet, "/projects/"+projectID+"/versions", nil, nil, &out)
}

func (c *Client) CreateVersion(ctx context.Context, projectID string, req CreateVersionRequest) (*Version, error) {
	var out Version
	if err := c.do(ctx, http.MethodPost, "/projects/"+projectID+"/versions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetVersion(ctx context.Context, projectID, versionID string) (*Version, error) {
	var out Version
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID+"/versions/"+versionID, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RevertToVersion(ctx context.Context, projectID, versionID string) error {
	return c.do(ctx, http.MethodPost, "/projects/"+projectID+"/versions/"+versionID+"/revert", nil, nil, nil)
}

// do issues one API request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
