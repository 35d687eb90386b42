package runner

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BetterCallFirewall/surfacerecon/internal/models"
)

// LoadSessionCookies reads the cookie-array file: объекты с полями name и
// value, лишние поля (domain, path и т.д.) игнорируются.
func LoadSessionCookies(path string) ([]models.SessionCookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookies %s: %w", path, err)
	}
	var cookies []models.SessionCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("parse cookies %s: %w", path, err)
	}
	for i, c := range cookies {
		if c.Name == "" {
			return nil, fmt.Errorf("parse cookies %s: cookie %d has no name", path, i)
		}
	}
	return cookies, nil
}

// LoadSessionHeaders reads the header-object file: плоский объект
// имя→значение.
func LoadSessionHeaders(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read headers %s: %w", path, err)
	}
	var headers map[string]string
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("parse headers %s: %w", path, err)
	}
	return headers, nil
}
