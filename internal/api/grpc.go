package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/victornm/livequiz/internal/auth"
	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
)

const liveServiceName = "livequiz.v1.LiveService"

// LiveServiceServer is the in-game RPC surface. Requests and responses are JSON
// objects carried as google.protobuf.Struct.
type LiveServiceServer interface {
	CurrentTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitAnswer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NoteInteraction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TotalResults(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PersonalResults(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResultsChanged(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type liveMethod func(LiveServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var LiveServiceDesc = grpc.ServiceDesc{
	ServiceName: liveServiceName,
	HandlerType: (*LiveServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CurrentTask", LiveServiceServer.CurrentTask),
		unary("SubmitAnswer", LiveServiceServer.SubmitAnswer),
		unary("NoteInteraction", LiveServiceServer.NoteInteraction),
		unary("TotalResults", LiveServiceServer.TotalResults),
		unary("PersonalResults", LiveServiceServer.PersonalResults),
		unary("ResultsChanged", LiveServiceServer.ResultsChanged),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "livequiz/v1/live.proto",
}

func RegisterLiveServiceServer(s grpc.ServiceRegistrar, srv LiveServiceServer) {
	s.RegisterService(&LiveServiceDesc, srv)
}

// LiveMethod returns the full method name of an RPC, e.g. for conn.Invoke.
func LiveMethod(name string) string {
	return "/" + liveServiceName + "/" + name
}

func unary(name string, call liveMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LiveServiceServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LiveMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LiveServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AuthInterceptor verifies the bearer token of the "authorization" metadata and
// puts the caller's account into the context.
func AuthInterceptor(a *auth.Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		var h string
		if v := md.Get("authorization"); len(v) > 0 {
			h = v[0]
		}

		acc, err := a.VerifyHeader(h)
		if err != nil {
			return nil, err
		}

		return handler(auth.WithAccount(ctx, acc), req)
	}
}

type gameRequest struct {
	GameID   string          `json:"gameId"`
	Username string          `json:"username"`
	Answer   json.RawMessage `json:"answer"`
}

func (a *API) CurrentTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acc, req, err := a.decodeGameRequest(ctx, in)
	if err != nil {
		return nil, err
	}

	v, err := a.game.CurrentTask(ctx, req.GameID, acc)
	if errors.Is(err, errors.CodeNotFound) {
		return encodeStruct(FinishedView{HasFinished: true, HasGameFinished: true})
	}
	if err != nil {
		return nil, err
	}

	return encodeStruct(taskView(v))
}

func (a *API) SubmitAnswer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acc, req, err := a.decodeGameRequest(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(req.Answer) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("answer is required"))
	}

	score, err := a.game.SubmitJSON(ctx, req.GameID, acc, req.Answer)
	if err != nil {
		return nil, err
	}

	return encodeStruct(map[string]any{"score": score})
}

func (a *API) NoteInteraction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acc, req, err := a.decodeGameRequest(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := a.game.NoteInteraction(ctx, req.GameID, acc); err != nil {
		return nil, err
	}

	return &structpb.Struct{}, nil
}

func (a *API) TotalResults(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_, req, err := a.decodeGameRequest(ctx, in)
	if err != nil {
		return nil, err
	}

	entries, err := a.results.Total(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	return encodeStruct(map[string]any{"results": resultEntries(entries)})
}

func (a *API) PersonalResults(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acc, req, err := a.decodeGameRequest(ctx, in)
	if err != nil {
		return nil, err
	}

	who := req.Username
	if who == "" {
		who = acc.ID
	}

	res, err := a.results.Personal(ctx, req.GameID, who)
	if err != nil {
		return nil, err
	}

	return encodeStruct(map[string]any{"results": taskResults(res)})
}

func (a *API) ResultsChanged(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acc, req, err := a.decodeGameRequest(ctx, in)
	if err != nil {
		return nil, err
	}

	changed, known := a.results.Changed(ctx, req.GameID, acc.ID)
	if !known {
		return encodeStruct(map[string]any{"gameExists": false})
	}

	return encodeStruct(map[string]any{"haveResultsChanged": changed})
}

func (a *API) decodeGameRequest(ctx context.Context, in *structpb.Struct) (domain.Account, gameRequest, error) {
	var req gameRequest

	acc, ok := auth.FromContext(ctx)
	if !ok {
		return acc, req, errors.Unauthenticated()
	}

	b, err := protojson.Marshal(in)
	if err != nil {
		return acc, req, errors.Internal(fmt.Errorf("grpc: marshal request: %w", err))
	}

	if err := json.Unmarshal(b, &req); err != nil {
		return acc, req, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid request: %v", err))
	}
	if req.GameID == "" {
		return acc, req, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("gameId is required"))
	}

	return acc, req, nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("grpc: marshal response: %w", err))
	}

	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, errors.Internal(fmt.Errorf("grpc: decode response: %w", err))
	}

	return out, nil
}
