package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a lookup finds no row.
var ErrNotFound = errors.New("not found")

// Kind is the decoded command type. Stored rows carry a free-form type
// string; it is decoded exactly once when the command is loaded so the
// dispatcher can switch exhaustively.
type Kind int

const (
	KindInvalid Kind = iota
	KindText
	KindImage
	KindImageCarousel
	KindCode
	KindUpdateCode
	KindDynamic
	KindHelp
)

// ParseKind decodes a stored type string. Unknown strings decode to
// KindInvalid, which dispatch treats like a missing command.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return KindText
	case "image":
		return KindImage
	case "image carousel", "image_carousel":
		return KindImageCarousel
	case "code":
		return KindCode
	case "update_code", "update code":
		return KindUpdateCode
	case "dynamic", "others":
		return KindDynamic
	case "help":
		return KindHelp
	default:
		return KindInvalid
	}
}

// String returns the canonical stored form of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindImageCarousel:
		return "image carousel"
	case KindCode:
		return "code"
	case KindUpdateCode:
		return "update_code"
	case KindDynamic:
		return "dynamic"
	case KindHelp:
		return "help"
	default:
		return "invalid"
	}
}

// Command is a stored bot command.
type Command struct {
	Name        string
	Kind        Kind
	RawType     string
	Content     string
	Clearance   int
	Description string
	CreatedAt   time.Time
}

// ImageContent is the decoded payload of image and image-carousel commands.
type ImageContent struct {
	Ratio   string          `json:"ratio"`
	URL     json.RawMessage `json:"url"`
	AltText string          `json:"alt_text"`
}

// ImagePayload decodes the command's content as an image payload.
// The url field holds a single string for image commands and a string
// list for image carousels; URLs always returns the list form.
func (c *Command) ImagePayload() (ratio string, urls []string, altText string, err error) {
	var ic ImageContent
	if err := json.Unmarshal([]byte(c.Content), &ic); err != nil {
		return "", nil, "", fmt.Errorf("decode image content for %s: %w", c.Name, err)
	}

	var single string
	if err := json.Unmarshal(ic.URL, &single); err == nil {
		return ic.Ratio, []string{single}, ic.AltText, nil
	}
	var list []string
	if err := json.Unmarshal(ic.URL, &list); err != nil {
		return "", nil, "", fmt.Errorf("decode image urls for %s: %w", c.Name, err)
	}
	return ic.Ratio, list, ic.AltText, nil
}

const commandColumns = "name, type, content, clearance, description, created_at"

func scanCommand(row interface{ Scan(...any) error }) (*Command, error) {
	var c Command
	var createdAt string
	if err := row.Scan(&c.Name, &c.RawType, &c.Content, &c.Clearance, &c.Description, &createdAt); err != nil {
		return nil, err
	}
	c.Kind = ParseKind(c.RawType)
	c.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return &c, nil
}

// GetCommand returns the command with the given name, or ErrNotFound.
// Names are matched case-insensitively via lowercasing on write.
func (s *Store) GetCommand(ctx context.Context, name string) (*Command, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE name = ?`,
		strings.ToLower(name),
	)
	c, err := scanCommand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get command %s: %w", name, err)
	}
	return c, nil
}

// ListCommands returns all commands in insertion order.
func (s *Store) ListCommands(ctx context.Context) ([]Command, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commandColumns+` FROM commands ORDER BY created_at, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	var out []Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CreateCommand inserts a new command. The name is lowercased; inserting
// an existing name fails.
func (s *Store) CreateCommand(ctx context.Context, c *Command) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("command name is required")
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	rawType := c.RawType
	if rawType == "" {
		rawType = c.Kind.String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (name, type, content, clearance, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		strings.ToLower(c.Name), rawType, c.Content, c.Clearance, c.Description,
		createdAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("create command %s: %w", c.Name, err)
	}
	return nil
}

// UpdateCommand updates an existing command's type, content, clearance,
// and description. The name is immutable.
func (s *Store) UpdateCommand(ctx context.Context, c *Command) error {
	rawType := c.RawType
	if rawType == "" {
		rawType = c.Kind.String()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE commands SET type = ?, content = ?, clearance = ?, description = ? WHERE name = ?`,
		rawType, c.Content, c.Clearance, c.Description, strings.ToLower(c.Name),
	)
	if err != nil {
		return fmt.Errorf("update command %s: %w", c.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCommand removes a command by name.
func (s *Store) DeleteCommand(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM commands WHERE name = ?`, strings.ToLower(name),
	)
	if err != nil {
		return fmt.Errorf("delete command %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
