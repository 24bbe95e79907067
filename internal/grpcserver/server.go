// Package grpcserver implements the frs.profile.v1.ImportService gRPC server.
//
// It delegates all business logic to importer.Importer and profile.Service
// and handles only the gRPC transport concerns: metadata extraction, error
// mapping, and conversion between domain results and google.protobuf.Struct
// messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"frs/profile-service/internal/importer"
	"frs/profile-service/internal/profile"
)

// Server implements ImportServiceServer.
type Server struct {
	imp *importer.Importer
	svc *profile.Service
}

// NewServer constructs a gRPC Server backed by the importer and profile service.
func NewServer(imp *importer.Importer, svc *profile.Service) *Server {
	return &Server{imp: imp, svc: svc}
}

// Register mounts the service on g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&ServiceDesc, s)
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// Preview decides every row of req.csv without writing.
func (s *Server) Preview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	csv, opts, err := importRequest(req)
	if err != nil {
		return nil, err
	}
	opts.Actor = optionalUserID(ctx)

	preview, err := s.imp.Preview(ctx, strings.NewReader(csv), opts)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(preview)
}

// Process runs the import described by req.
func (s *Server) Process(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	csv, opts, err := importRequest(req)
	if err != nil {
		return nil, err
	}
	opts.Actor = userID

	result, err := s.imp.Process(ctx, strings.NewReader(csv), opts)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(result)
}

// Merge folds req.secondaryId into req.primaryId.
func (s *Server) Merge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	fields := req.GetFields()
	primary := int64(fields["primaryId"].GetNumberValue())
	secondary := int64(fields["secondaryId"].GetNumberValue())
	if primary <= 0 || secondary <= 0 {
		return nil, status.Error(codes.InvalidArgument, "primaryId and secondaryId are required")
	}

	p, err := s.svc.Merge(ctx, primary, secondary, userID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(p)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func importRequest(req *structpb.Struct) (string, importer.Options, error) {
	fields := req.GetFields()
	csv := fields["csv"].GetStringValue()
	if csv == "" {
		return "", importer.Options{}, status.Error(codes.InvalidArgument, "csv is required")
	}
	return csv, importer.Options{
		MatchMode:    importer.MatchMode(fields["matchMode"].GetStringValue()),
		Mode:         importer.ImportMode(fields["mode"].GetStringValue()),
		ImportImages: fields["importImages"].GetBoolValue(),
	}, nil
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

// userIDFromCtx extracts the x-user-id value forwarded by the Gateway
// via gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	return vals[0], nil
}

func optionalUserID(ctx context.Context) string {
	id, _ := userIDFromCtx(ctx)
	return id
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	if errors.Is(err, profile.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	if errors.Is(err, profile.ErrDuplicateEmail) {
		return status.Error(codes.AlreadyExists, err.Error())
	}
	if errors.Is(err, importer.ErrNoHeader) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	var pve *profile.ValidationError
	if errors.As(err, &pve) {
		return status.Error(codes.InvalidArgument, pve.Msg)
	}
	var ive *importer.ValidationError
	if errors.As(err, &ive) {
		return status.Error(codes.InvalidArgument, ive.Msg)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, "internal server error")
}
