package dependencies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallcraft/internal/wallpaper"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// EditImageMethod is served by the edit worker. Request and response are
// google.protobuf.Struct so no generated stubs are needed on either side.
const EditImageMethod = "/wallcraft.v1.ImageEditService/EditImage"

type Rpc struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

func NewRpc(peer, port string, timeout time.Duration, opts ...grpc.DialOption) (*Rpc, error) {
	return NewRpcTarget(fmt.Sprint(peer, ":", port), timeout, opts...)
}

func NewRpcTarget(target string, timeout time.Duration, opts ...grpc.DialOption) (*Rpc, error) {
	if timeout <= 0 {
		timeout = 240 * time.Second
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating newrpc: %w", err)
	}

	return &Rpc{
		conn:    conn,
		timeout: timeout,
	}, nil
}

func (r *Rpc) EditImage(ctx context.Context, req wallpaper.EditRequest) (*wallpaper.EditResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	in, err := structpb.NewStruct(map[string]any{
		"image":       req.EncodedBytes,
		"mimeType":    req.MediaType,
		"prompt":      req.Prompt,
		"aspectRatio": string(req.AspectRatio),
	})
	if err != nil {
		return nil, fmt.Errorf("encode rpc request: %w", err)
	}

	out := &structpb.Struct{}
	if err := r.conn.Invoke(ctx, EditImageMethod, in, out); err != nil {
		if st, ok := status.FromError(err); ok && st.Message() != "" {
			return nil, errors.New(st.Message())
		}
		return nil, err
	}

	fields := out.GetFields()
	if msg := strings.TrimSpace(fields["error"].GetStringValue()); msg != "" {
		return nil, errors.New(msg)
	}

	url := fields["imageUrl"].GetStringValue()
	if url == "" {
		return nil, errors.New("rpc editor: response has no imageUrl")
	}
	mimeType := fields["mimeType"].GetStringValue()
	if mimeType == "" {
		mimeType = "image/png"
	}

	return &wallpaper.EditResult{ImageURL: url, MimeType: mimeType}, nil
}

func (r *Rpc) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}
