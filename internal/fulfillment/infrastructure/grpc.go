package infrastructure

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"go-marketplace/internal/fulfillment/application"
	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/pkg/errors"
)

// FulfillmentServiceName is the fully qualified gRPC service name
const FulfillmentServiceName = "marketplace.v1.Fulfillment"

// FulfillmentServer is the gRPC surface of the engine. Messages are
// google.protobuf.Struct documents carrying the same fields as the HTTP API.
type FulfillmentServer interface {
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindNearbyRestaurants(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(FulfillmentServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FulfillmentServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + FulfillmentServiceName + "/" + name,
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(FulfillmentServer), ctx, req.(*structpb.Struct))
		})
	}
}

var fulfillmentServiceDesc = grpc.ServiceDesc{
	ServiceName: FulfillmentServiceName,
	HandlerType: (*FulfillmentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOrder", Handler: methodHandler("GetOrder", FulfillmentServer.GetOrder)},
		{MethodName: "UpdateOrderStatus", Handler: methodHandler("UpdateOrderStatus", FulfillmentServer.UpdateOrderStatus)},
		{MethodName: "FindNearbyRestaurants", Handler: methodHandler("FindNearbyRestaurants", FulfillmentServer.FindNearbyRestaurants)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketplace/v1/fulfillment.proto",
}

// RegisterFulfillmentServer registers srv on s
func RegisterFulfillmentServer(s grpc.ServiceRegistrar, srv FulfillmentServer) {
	s.RegisterService(&fulfillmentServiceDesc, srv)
}

// GRPCServer implements FulfillmentServer
type GRPCServer struct {
	fulfillment *application.FulfillmentService
	discovery   *application.DiscoveryService
}

// NewGRPCServer creates a new gRPC server
func NewGRPCServer(fulfillment *application.FulfillmentService, discovery *application.DiscoveryService) *GRPCServer {
	return &GRPCServer{fulfillment: fulfillment, discovery: discovery}
}

// GetOrder expects {"order_id": string}
func (s *GRPCServer) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	output, err := s.fulfillment.GetOrder(ctx, stringField(req, "order_id"))
	if err != nil {
		return nil, err
	}
	return toStruct(toOrderResponse(output.Order))
}

// UpdateOrderStatus expects {"order_id": string, "status": string}
func (s *GRPCServer) UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	status, err := domain.ParseOrderStatus(strings.ToUpper(stringField(req, "status")))
	if err != nil {
		return nil, err
	}
	output, err := s.fulfillment.UpdateOrderStatus(ctx, application.UpdateOrderStatusInput{
		OrderID: stringField(req, "order_id"),
		Status:  status,
	})
	if err != nil {
		return nil, err
	}
	return toStruct(toOrderResponse(output.Order))
}

// FindNearbyRestaurants expects {"lat", "lng"} and optionally "radius_km",
// "categories" (list), "min_rating", "sort", "page" and "limit"
func (s *GRPCServer) FindNearbyRestaurants(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	if _, ok := fields["lat"]; !ok {
		return nil, errors.NewValidation("lat is required", nil)
	}
	if _, ok := fields["lng"]; !ok {
		return nil, errors.NewValidation("lng is required", nil)
	}
	center, err := domain.NewGeoPoint(fields["lat"].GetNumberValue(), fields["lng"].GetNumberValue())
	if err != nil {
		return nil, err
	}

	radius := s.discovery.DefaultRadiusKm()
	if v, ok := fields["radius_km"]; ok {
		radius = v.GetNumberValue()
	}

	var categories []string
	for _, v := range fields["categories"].GetListValue().GetValues() {
		categories = append(categories, v.GetStringValue())
	}

	result, err := s.discovery.FindNearbyRestaurants(ctx, application.NearbyQuery{
		Center:     center,
		RadiusKm:   radius,
		Categories: categories,
		MinRating:  fields["min_rating"].GetNumberValue(),
		SortBy:     application.SortKey(stringField(req, "sort")),
		Page:       int(fields["page"].GetNumberValue()),
		Limit:      int(fields["limit"].GetNumberValue()),
	})
	if err != nil {
		return nil, err
	}

	hits := make([]NearbyRestaurantResponse, len(result.Results))
	for i, r := range result.Results {
		hits[i] = NearbyRestaurantResponse{
			RestaurantResponse: toRestaurantResponse(r.Restaurant),
			DistanceKm:         r.DistanceKm,
		}
	}
	return toStruct(NearbyResponse{
		Restaurants: hits,
		Page:        result.Page,
		Limit:       result.Limit,
		Total:       result.Total,
		TotalPages:  result.TotalPages,
	})
}

// FulfillmentClient calls a remote FulfillmentServer
type FulfillmentClient struct {
	cc grpc.ClientConnInterface
}

// NewFulfillmentClient wraps an established connection
func NewFulfillmentClient(cc grpc.ClientConnInterface) *FulfillmentClient {
	return &FulfillmentClient{cc: cc}
}

func (c *FulfillmentClient) call(ctx context.Context, method string, in map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, errors.NewValidation("request is not representable as a struct", err.Error())
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+FulfillmentServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder fetches an order
func (c *FulfillmentClient) GetOrder(ctx context.Context, orderID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetOrder", map[string]interface{}{"order_id": orderID}, opts...)
}

// UpdateOrderStatus transitions an order
func (c *FulfillmentClient) UpdateOrderStatus(ctx context.Context, orderID, status string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "UpdateOrderStatus", map[string]interface{}{"order_id": orderID, "status": status}, opts...)
}

// FindNearbyRestaurants runs a discovery query; query uses the server's field names
func (c *FulfillmentClient) FindNearbyRestaurants(ctx context.Context, query map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "FindNearbyRestaurants", query, opts...)
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

// toStruct renders a response DTO through its JSON tags
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NewInternal("failed to encode response", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.NewInternal("failed to encode response", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, errors.NewInternal("failed to encode response", err)
	}
	return out, nil
}
