package grpcserver_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"frs/profile-service/internal/account"
	"frs/profile-service/internal/db"
	"frs/profile-service/internal/grpcserver"
	"frs/profile-service/internal/importer"
	"frs/profile-service/internal/model"
	"frs/profile-service/internal/profile"
)

func newClient(t *testing.T) (*grpcserver.Client, *profile.SQLiteStore) {
	t.Helper()
	conn, err := db.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	store := profile.NewSQLiteStore(conn)
	imp := importer.New(importer.Deps{Store: store, Linker: account.NewSQLiteLinker(conn)})

	lis := bufconn.Listen(1 << 20)
	gsrv := grpc.NewServer()
	grpcserver.NewServer(imp, profile.NewService(store, nil)).Register(gsrv)
	go gsrv.Serve(lis)
	t.Cleanup(gsrv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return grpcserver.NewClient(cc), store
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func withUser(id string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "x-user-id", id)
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("code = %s, want %s (err %v)", got, want, err)
	}
}

const csvData = "first_name,last_name,email,nmls\nJane,Doe,jane@x.com,111\nJohn,Smith,,222\n"

func TestPreview_NoUserRequired(t *testing.T) {
	client, store := newClient(t)
	if _, err := store.Create(context.Background(), &model.Profile{
		FirstName: "John", LastName: "Smith", NMLS: "222", IsActive: true,
	}); err != nil {
		t.Fatal(err)
	}

	out, err := client.Preview(context.Background(), mustStruct(t, map[string]any{
		"csv":       csvData,
		"matchMode": "nmls",
	}))
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	summary := out.GetFields()["summary"].GetStructValue().GetFields()
	if summary["new"].GetNumberValue() != 1 || summary["update"].GetNumberValue() != 1 {
		t.Errorf("summary = %v", summary)
	}
	rows := out.GetFields()["rows"].GetListValue().GetValues()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	match := rows[1].GetStructValue().GetFields()["match"].GetStructValue().GetFields()
	if match["method"].GetStringValue() != "nmls" {
		t.Errorf("match = %v", match)
	}
}

func TestProcess_RequiresUser(t *testing.T) {
	client, _ := newClient(t)
	_, err := client.Process(context.Background(), mustStruct(t, map[string]any{"csv": csvData}))
	wantCode(t, err, codes.Unauthenticated)
}

func TestProcess_CreatesProfiles(t *testing.T) {
	client, store := newClient(t)

	out, err := client.Process(withUser("admin-7"), mustStruct(t, map[string]any{"csv": csvData}))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := out.GetFields()["created"].GetNumberValue(); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if out.GetFields()["runId"].GetStringValue() == "" {
		t.Error("runId is empty")
	}

	active, err := store.ListActive(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Errorf("active profiles = %d, want 2", len(active))
	}
}

func TestProcess_InvalidArguments(t *testing.T) {
	client, _ := newClient(t)
	ctx := withUser("admin")

	_, err := client.Process(ctx, mustStruct(t, map[string]any{}))
	wantCode(t, err, codes.InvalidArgument)

	_, err = client.Process(ctx, mustStruct(t, map[string]any{"csv": csvData, "mode": "replace"}))
	wantCode(t, err, codes.InvalidArgument)
}

func TestMerge(t *testing.T) {
	client, store := newClient(t)
	ctx := context.Background()
	for _, p := range []model.Profile{
		{FirstName: "Jane", IsActive: true},
		{FirstName: "Janet", Company: "Acme", IsActive: true},
	} {
		if _, err := store.Create(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}

	_, err := client.Merge(withUser("admin"), mustStruct(t, map[string]any{"primaryId": 1, "secondaryId": 9}))
	wantCode(t, err, codes.NotFound)

	_, err = client.Merge(withUser("admin"), mustStruct(t, map[string]any{"primaryId": 1}))
	wantCode(t, err, codes.InvalidArgument)

	out, err := client.Merge(withUser("admin"), mustStruct(t, map[string]any{"primaryId": 1, "secondaryId": 2}))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := out.GetFields()["company"].GetStringValue(); got != "Acme" {
		t.Errorf("company = %q, want Acme", got)
	}
}
