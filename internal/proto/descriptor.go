// Package proto holds the wire contract of the session service: the protobuf
// messages described by session.proto and the gRPC service description
// shared by server and client.
package proto

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// FileName is the path session.proto is registered under.
const FileName = "authkeeper/session.proto"

const protoPackage = "authkeeper.session"

func scalar(name, jsonName string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(jsonName),
		Number:   proto.Int32(num),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
	}
}

func str(name, jsonName string, num int32) *descriptorpb.FieldDescriptorProto {
	return scalar(name, jsonName, num, descriptorpb.FieldDescriptorProto_TYPE_STRING)
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func method(name string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String("." + protoPackage + "." + name + "Request"),
		OutputType: proto.String("." + protoPackage + "." + name + "Response"),
	}
}

// SessionFileDescriptor returns session.proto as a FileDescriptorProto. The
// message order matches the Go types in session.pb.go.
func SessionFileDescriptor() *descriptorpb.FileDescriptorProto {
	registeredOn := scalar("registered_on", "registeredOn", 5, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	registeredOn.TypeName = proto.String(".google.protobuf.Timestamp")

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(FileName),
		Package:    proto.String(protoPackage),
		Dependency: []string{"google/protobuf/timestamp.proto"},
		Syntax:     proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/dmitrijs2005/authkeeper/internal/proto"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			message("RegisterRequest", str("email", "email", 1), str("username", "username", 2), str("password", "password", 3)),
			message("RegisterResponse", str("user_id", "userId", 1), str("access_token", "accessToken", 2), str("refresh_token", "refreshToken", 3)),
			message("LoginRequest", str("email", "email", 1), str("password", "password", 2)),
			message("LoginResponse", str("access_token", "accessToken", 1), str("refresh_token", "refreshToken", 2)),
			message("StatusRequest"),
			message("StatusResponse",
				str("user_id", "userId", 1),
				str("email", "email", 2),
				str("username", "username", 3),
				scalar("admin", "admin", 4, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				registeredOn),
			message("RefreshRequest"),
			message("RefreshResponse", str("access_token", "accessToken", 1)),
			message("LogoutRequest"),
			message("LogoutResponse"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("SessionService"),
			Method: []*descriptorpb.MethodDescriptorProto{method("Register"), method("Login"), method("Status"), method("Refresh"), method("Logout")},
		}},
	}
}

func mustRawDescriptor() []byte {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(SessionFileDescriptor())
	if err != nil {
		panic(err)
	}
	return b
}
