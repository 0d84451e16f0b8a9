package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PhelGc/sig-rca/internal/config"
	"github.com/PhelGc/sig-rca/internal/rca"
)

// ErrIssueNotFound la incidencia no existe o no es visible
var ErrIssueNotFound = errors.New("incidencia de Jira no encontrada")

// Client cliente de Jira usando API v3 directamente
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	project    string
	status     string
	httpClient *http.Client
}

// Draft incidencia de Jira convertida en borrador de captura
type Draft struct {
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	IssueType   string     `json:"issueType"`
	URL         string     `json:"url"`
	CreatedDate time.Time  `json:"createdDate"`
	Intake      rca.Intake `json:"intake"`
}

// JiraSearchResponse estructura de respuesta de la API v3 de Jira
type JiraSearchResponse struct {
	Issues []JiraIssue `json:"issues"`
}

// JiraIssue estructura de issue de Jira API v3
type JiraIssue struct {
	Key    string     `json:"key"`
	Fields JiraFields `json:"fields"`
}

// JiraFields campos del issue
type JiraFields struct {
	Summary     string        `json:"summary"`
	Description interface{}   `json:"description"`
	Status      JiraStatus    `json:"status"`
	IssueType   JiraIssueType `json:"issuetype"`
	Project     JiraProject   `json:"project"`
	Created     string        `json:"created"`
}

// JiraIssueType representa el tipo de issue
type JiraIssueType struct {
	Name string `json:"name"`
}

// JiraStatus estado del issue
type JiraStatus struct {
	Name string `json:"name"`
}

// JiraProject proyecto del issue; su nombre se usa como área
type JiraProject struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// NewClient crea un nuevo cliente de Jira usando API v3
func NewClient(cfg config.JiraConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("JIRA_URL, JIRA_USERNAME y JIRA_API_TOKEN son obligatorios")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		username:   cfg.Username,
		apiToken:   cfg.APIToken,
		project:    cfg.Project,
		status:     cfg.Status,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// extractTextFromADF extrae texto de campos con formato ADF (Atlassian Document Format)
func extractTextFromADF(content interface{}) string {
	if content == nil {
		return ""
	}

	// Si es string directo, devolverlo
	if str, ok := content.(string); ok {
		return str
	}

	// Si es un mapa (objeto ADF)
	if contentMap, ok := content.(map[string]interface{}); ok {
		return strings.TrimSpace(extractTextFromADFMap(contentMap))
	}

	return ""
}

// extractTextFromADFMap extrae recursivamente texto de un mapa ADF.
// Los párrafos quedan separados por salto de línea.
func extractTextFromADFMap(contentMap map[string]interface{}) string {
	var result strings.Builder

	if text, ok := contentMap["text"].(string); ok {
		result.WriteString(text)
	}

	if content, ok := contentMap["content"].([]interface{}); ok {
		for _, item := range content {
			itemMap, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			part := extractTextFromADFMap(itemMap)
			if strings.TrimSpace(part) == "" {
				continue
			}
			if result.Len() > 0 && isBlock(itemMap) {
				result.WriteString("\n")
			}
			result.WriteString(part)
		}
	}

	return result.String()
}

func isBlock(node map[string]interface{}) bool {
	switch node["type"] {
	case "paragraph", "heading", "bulletList", "orderedList", "listItem", "codeBlock", "blockquote":
		return true
	}
	return false
}

// buildJQL arma la consulta del proyecto y estado configurados
func (c *Client) buildJQL() string {
	// Construir JQL dinámicamente con comillas para manejar espacios
	jql := "project = \"" + c.project + "\""

	// Agregar filtro por estado si está configurado
	if c.status != "" {
		jql += " AND status = \"" + c.status + "\""
	}

	return jql + " ORDER BY created DESC"
}

// GetDrafts obtiene las incidencias según los filtros configurados como borradores de captura
func (c *Client) GetDrafts(ctx context.Context) ([]*Draft, error) {
	params := url.Values{}
	params.Add("jql", c.buildJQL())
	params.Add("maxResults", "100")
	params.Add("fields", "summary,description,status,issuetype,project,created")

	var searchResponse JiraSearchResponse
	if err := c.get(ctx, "/rest/api/3/search/jql?"+params.Encode(), &searchResponse); err != nil {
		return nil, err
	}

	drafts := make([]*Draft, 0, len(searchResponse.Issues))
	for _, issue := range searchResponse.Issues {
		drafts = append(drafts, c.toDraft(issue))
	}
	return drafts, nil
}

// GetDraft obtiene una incidencia por clave
func (c *Client) GetDraft(ctx context.Context, key string) (*Draft, error) {
	params := url.Values{}
	params.Add("fields", "summary,description,status,issuetype,project,created")

	var issue JiraIssue
	if err := c.get(ctx, "/rest/api/3/issue/"+url.PathEscape(key)+"?"+params.Encode(), &issue); err != nil {
		return nil, err
	}
	return c.toDraft(issue), nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("error creando request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error haciendo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error leyendo response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrIssueNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("error en API de Jira (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parseando response: %w", err)
	}
	return nil
}

// toDraft convierte la incidencia: problema = resumen + descripción,
// área = proyecto, evidencia = enlace a la incidencia
func (c *Client) toDraft(issue JiraIssue) *Draft {
	link := c.baseURL + "/browse/" + issue.Key

	problema := strings.TrimSpace(issue.Fields.Summary)
	if description := extractTextFromADF(issue.Fields.Description); description != "" {
		problema += "\n\n" + description
	}

	area := issue.Fields.Project.Name
	if area == "" {
		area = issue.Fields.Project.Key
	}

	return &Draft{
		Key:         issue.Key,
		Title:       issue.Fields.Summary,
		Status:      issue.Fields.Status.Name,
		IssueType:   issue.Fields.IssueType.Name,
		URL:         link,
		CreatedDate: parseJiraDate(issue.Fields.Created),
		Intake: rca.Intake{
			Problema:  problema,
			Area:      area,
			Evidencia: link,
			Impactos:  []rca.Impact{},
		},
	}
}

// parseJiraDate parsea fechas de Jira con manejo de diferentes formatos
func parseJiraDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}

	// Formatos comunes de Jira
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
	}

	for _, format := range formats {
		if parsed, err := time.Parse(format, dateStr); err == nil {
			return parsed
		}
	}

	// Si no se puede parsear, devolver fecha vacía
	return time.Time{}
}
