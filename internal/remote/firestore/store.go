// Package firestore implements the remote ports on Cloud Firestore through
// its REST API.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	fs "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"foco/internal/core"
	"foco/internal/remote"
)

const pageSize = 300

type Config struct {
	ProjectID  string
	DatabaseID string
	// CredentialsJSON is a service account key. When empty, application
	// default credentials are used.
	CredentialsJSON []byte
}

type Store struct {
	docs *fs.ProjectsDatabasesDocumentsService
	root string
}

var (
	_ remote.Store  = (*Store)(nil)
	_ remote.Pinger = (*Store)(nil)
)

// New connects to the database described by cfg. Extra options are applied
// after the credentials.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("missing firestore project id")
	}
	if cfg.DatabaseID == "" {
		cfg.DatabaseID = "(default)"
	}

	var all []option.ClientOption
	if len(cfg.CredentialsJSON) > 0 {
		all = append(all, option.WithCredentialsJSON(cfg.CredentialsJSON), option.WithScopes(fs.DatastoreScope))
	}
	all = append(all, opts...)

	svc, err := fs.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create firestore service: %w", err)
	}
	slog.InfoContext(ctx, "Firestore service created", "project", cfg.ProjectID, "database", cfg.DatabaseID)

	return &Store{
		docs: svc.Projects.Databases.Documents,
		root: fmt.Sprintf("projects/%s/databases/%s/documents", cfg.ProjectID, cfg.DatabaseID),
	}, nil
}

// LoadCredentials resolves the service account key from inline JSON, a file,
// or GOOGLE_APPLICATION_CREDENTIALS, in that order. No source at all yields
// nil so that application default credentials apply.
func LoadCredentials(inline, file string) ([]byte, error) {
	inline, file = strings.TrimSpace(inline), strings.TrimSpace(file)
	if inline != "" {
		return []byte(inline), nil
	}
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (s *Store) ListTransactions(ctx context.Context, uid string) ([]core.Transaction, error) {
	var out []core.Transaction
	err := s.list(ctx, s.userParent(uid), "transactions", func(doc *fs.Document) error {
		var tx core.Transaction
		if err := decodeDocument(doc, &tx); err != nil {
			return err
		}
		if tx.ID == "" {
			tx.ID = lastSegment(doc.Name)
		}
		out = append(out, tx)
		return nil
	})
	return out, err
}

func (s *Store) PutTransaction(ctx context.Context, uid string, tx core.Transaction) error {
	return s.put(ctx, s.userParent(uid)+"/transactions/"+tx.ID, tx)
}

func (s *Store) DeleteTransaction(ctx context.Context, uid, id string) error {
	return s.delete(ctx, s.userParent(uid)+"/transactions/"+id)
}

func (s *Store) ListLedgers(ctx context.Context, uid string) ([]core.Ledger, error) {
	var out []core.Ledger
	err := s.list(ctx, s.userParent(uid), "ledgers", func(doc *fs.Document) error {
		var l core.Ledger
		if err := decodeDocument(doc, &l); err != nil {
			return err
		}
		if l.ID == "" {
			l.ID = lastSegment(doc.Name)
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

func (s *Store) GetLedger(ctx context.Context, uid, id string) (core.Ledger, error) {
	var l core.Ledger
	if err := s.get(ctx, s.userParent(uid)+"/ledgers/"+id, &l); err != nil {
		return core.Ledger{}, err
	}
	if l.ID == "" {
		l.ID = id
	}
	return l, nil
}

func (s *Store) PutLedger(ctx context.Context, uid string, l core.Ledger) error {
	return s.put(ctx, s.userParent(uid)+"/ledgers/"+l.ID, l)
}

func (s *Store) DeleteLedger(ctx context.Context, uid, id string) error {
	return s.delete(ctx, s.userParent(uid)+"/ledgers/"+id)
}

func (s *Store) GetPublicLedger(ctx context.Context, slug string) (core.PublicLedger, error) {
	var pl core.PublicLedger
	err := s.get(ctx, s.root+"/"+remote.PublicLedgersPath+"/"+slug, &pl)
	return pl, err
}

func (s *Store) PutPublicLedger(ctx context.Context, pl core.PublicLedger) error {
	return s.put(ctx, s.root+"/"+remote.PublicLedgersPath+"/"+pl.PublicSlug, pl)
}

func (s *Store) DeletePublicLedger(ctx context.Context, slug string) error {
	return s.delete(ctx, s.root+"/"+remote.PublicLedgersPath+"/"+slug)
}

// Ping lists at most one public ledger.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.docs.List(s.root, remote.PublicLedgersPath).PageSize(1).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}

func (s *Store) userParent(uid string) string {
	return s.root + "/users/" + uid
}

func (s *Store) list(ctx context.Context, parent, collection string, fn func(*fs.Document) error) error {
	call := s.docs.List(parent, collection).PageSize(pageSize).Context(ctx)
	token := ""
	for {
		resp, err := call.PageToken(token).Do()
		if err != nil {
			return fmt.Errorf("list %s/%s: %w", parent, collection, err)
		}
		for _, doc := range resp.Documents {
			if err := fn(doc); err != nil {
				slog.WarnContext(ctx, "Skipping undecodable document", "name", doc.Name, "error", err)
			}
		}
		if resp.NextPageToken == "" {
			return nil
		}
		token = resp.NextPageToken
	}
}

func (s *Store) get(ctx context.Context, name string, dst any) error {
	doc, err := s.docs.Get(name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return remote.ErrNotFound
		}
		return fmt.Errorf("get %s: %w", name, err)
	}
	return decodeDocument(doc, dst)
}

func (s *Store) put(ctx context.Context, name string, v any) error {
	if strings.HasSuffix(name, "/") {
		return core.ErrEmptyID
	}
	doc, err := encodeDocument(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if _, err := s.docs.Patch(name, doc).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch %s: %w", name, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, name string) error {
	if _, err := s.docs.Delete(name).Context(ctx).Do(); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
