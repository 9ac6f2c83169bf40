package connectorrpc

import (
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	connector "github.com/example/platform-connector-go"
)

// Message field names.
const (
	fieldOperation        = "operation"
	fieldRequestID        = "requestId"
	fieldObjectID         = "objectId"
	fieldObjectDetails    = "objectDetails"
	fieldSearchParameters = "searchParameters"
	fieldStatus           = "status"
	fieldErrorMessage     = "errorMessage"
	fieldOverall          = "overall"
	fieldComponents       = "components"
	fieldMetrics          = "metrics"
	fieldState            = "state"
	fieldComment          = "comment"
	fieldName             = "name"
	fieldValue            = "value"
	fieldTimestamp        = "timestamp"
	fieldPluginID         = "pluginId"
	fieldHealth           = "health"
	fieldID               = "id"
	fieldDescription      = "description"
	fieldVersion          = "version"
	fieldArtifact         = "artifact"
	fieldOperations       = "operations"
	fieldSourceAvailable  = "sourceAvailable"
	fieldFileName         = "fileName"
	fieldData             = "data"
	fieldUsesAGPL         = "usesAgpl"
)

// Values map onto structpb scalars. Timestamps have no scalar form, so they
// travel as {"timestamp": "<RFC 3339>"}.

func encodeValue(v connector.Value) (*structpb.Value, error) {
	switch v.Kind() {
	case connector.KindString:
		s, _ := v.AsString()
		return structpb.NewStringValue(s), nil
	case connector.KindNumber:
		n, _ := v.AsNumber()
		return structpb.NewNumberValue(n), nil
	case connector.KindBool:
		b, _ := v.AsBool()
		return structpb.NewBoolValue(b), nil
	case connector.KindTimestamp:
		t, _ := v.AsTimestamp()
		return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldTimestamp: structpb.NewStringValue(t.Format(time.RFC3339Nano)),
		}}), nil
	default:
		return nil, fmt.Errorf("cannot encode %s value", v.Kind())
	}
}

func decodeValue(pv *structpb.Value) (connector.Value, error) {
	switch k := pv.GetKind().(type) {
	case *structpb.Value_StringValue:
		return connector.String(k.StringValue), nil
	case *structpb.Value_NumberValue:
		return connector.Number(k.NumberValue), nil
	case *structpb.Value_BoolValue:
		return connector.Bool(k.BoolValue), nil
	case *structpb.Value_StructValue:
		raw, ok := k.StructValue.GetFields()[fieldTimestamp]
		if !ok || len(k.StructValue.GetFields()) != 1 {
			return connector.Value{}, fmt.Errorf("unsupported struct value")
		}
		t, err := time.Parse(time.RFC3339Nano, raw.GetStringValue())
		if err != nil {
			return connector.Value{}, fmt.Errorf("timestamp value: %w", err)
		}
		return connector.Timestamp(t), nil
	default:
		return connector.Value{}, fmt.Errorf("unsupported value kind %T", k)
	}
}

func encodeFields(f connector.Fields) (*structpb.Value, error) {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(f))}
	for k, v := range f {
		pv, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		s.Fields[k] = pv
	}
	return structpb.NewStructValue(s), nil
}

func decodeFields(pv *structpb.Value) (connector.Fields, error) {
	if pv == nil {
		return nil, nil
	}
	s := pv.GetStructValue()
	if s == nil {
		return nil, fmt.Errorf("fields must be a struct")
	}
	out := make(connector.Fields, len(s.GetFields()))
	for k, v := range s.GetFields() {
		val, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

func getString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func getBool(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// EncodeRequest converts a request into its wire message.
func EncodeRequest(req connector.Request) (*structpb.Struct, error) {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	put := func(key string, v *structpb.Value) { msg.Fields[key] = v }
	putFields := func(key string, f connector.Fields) error {
		if f == nil {
			return nil
		}
		pv, err := encodeFields(f)
		if err != nil {
			return err
		}
		put(key, pv)
		return nil
	}

	var err error
	switch r := req.(type) {
	case connector.CreateRequest:
		err = putFields(fieldObjectDetails, r.ObjectDetails)
	case connector.ReadRequest:
		put(fieldObjectID, structpb.NewStringValue(r.ObjectID))
		err = putFields(fieldSearchParameters, r.SearchParameters)
	case connector.UpdateRequest:
		put(fieldObjectID, structpb.NewStringValue(r.ObjectID))
		err = putFields(fieldObjectDetails, r.ObjectDetails)
	case connector.DeleteRequest:
		put(fieldObjectID, structpb.NewStringValue(r.ObjectID))
	case *connector.CreateRequest, *connector.ReadRequest, *connector.UpdateRequest, *connector.DeleteRequest:
		return EncodeRequest(derefRequest(r))
	default:
		return nil, fmt.Errorf("%w: %T", connector.ErrUnrecognizedRequestType, req)
	}
	if err != nil {
		return nil, err
	}

	put(fieldOperation, structpb.NewStringValue(req.Operation().String()))
	put(fieldRequestID, structpb.NewStringValue(req.ID()))
	return msg, nil
}

func derefRequest(req connector.Request) connector.Request {
	switch r := req.(type) {
	case *connector.CreateRequest:
		if r != nil {
			return *r
		}
	case *connector.ReadRequest:
		if r != nil {
			return *r
		}
	case *connector.UpdateRequest:
		if r != nil {
			return *r
		}
	case *connector.DeleteRequest:
		if r != nil {
			return *r
		}
	}
	return nil
}

// DecodeRequest converts a wire message into a request. Messages naming an
// unknown operation fail with connector.ErrUnrecognizedRequestType and
// undecodable fields with ErrMalformedRequest.
func DecodeRequest(msg *structpb.Struct) (connector.Request, error) {
	op, err := connector.ParseOperation(getString(msg, fieldOperation))
	if err != nil {
		return nil, err
	}
	requestID := getString(msg, fieldRequestID)
	objectID := getString(msg, fieldObjectID)

	switch op {
	case connector.OperationCreate:
		details, err := decodeFields(msg.GetFields()[fieldObjectDetails])
		if err != nil {
			return nil, fmt.Errorf("%w: object details: %w", ErrMalformedRequest, err)
		}
		return connector.CreateRequest{RequestID: requestID, ObjectDetails: details}, nil
	case connector.OperationRead:
		params, err := decodeFields(msg.GetFields()[fieldSearchParameters])
		if err != nil {
			return nil, fmt.Errorf("%w: search parameters: %w", ErrMalformedRequest, err)
		}
		return connector.ReadRequest{RequestID: requestID, ObjectID: objectID, SearchParameters: params}, nil
	case connector.OperationUpdate:
		details, err := decodeFields(msg.GetFields()[fieldObjectDetails])
		if err != nil {
			return nil, fmt.Errorf("%w: object details: %w", ErrMalformedRequest, err)
		}
		return connector.UpdateRequest{RequestID: requestID, ObjectID: objectID, ObjectDetails: details}, nil
	case connector.OperationDelete:
		return connector.DeleteRequest{RequestID: requestID, ObjectID: objectID}, nil
	default:
		return nil, fmt.Errorf("%w: %s", connector.ErrUnrecognizedRequestType, op)
	}
}

// EncodeResponse converts a response into its wire message.
func EncodeResponse(resp connector.Response) (*structpb.Struct, error) {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldOperation: structpb.NewStringValue(resp.Operation().String()),
		fieldRequestID: structpb.NewStringValue(resp.ID()),
		fieldStatus:    structpb.NewStringValue(resp.Status().String()),
		fieldObjectID:  structpb.NewStringValue(resp.ObjectID()),
	}}
	if m, ok := resp.ErrorMessage(); ok {
		msg.Fields[fieldErrorMessage] = structpb.NewStringValue(m)
	}
	if details := connector.DetailsOf(resp); details != nil {
		pv, err := encodeFields(details)
		if err != nil {
			return nil, err
		}
		msg.Fields[fieldObjectDetails] = pv
	}
	return msg, nil
}

// DecodeResponse converts a wire message into a response.
func DecodeResponse(msg *structpb.Struct) (connector.Response, error) {
	op, err := connector.ParseOperation(getString(msg, fieldOperation))
	if err != nil {
		return nil, err
	}
	status, err := connector.ParseStatus(getString(msg, fieldStatus))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrInvalidResponse, err)
	}
	details, err := decodeFields(msg.GetFields()[fieldObjectDetails])
	if err != nil {
		return nil, err
	}
	return connector.ResponseFor(op,
		getString(msg, fieldRequestID),
		getString(msg, fieldObjectID),
		status,
		getString(msg, fieldErrorMessage),
		details)
}

func encodeStatus(st connector.HealthStatus) *structpb.Value {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldState: structpb.NewStringValue(st.State.String()),
	}}
	if st.Comment != "" {
		s.Fields[fieldComment] = structpb.NewStringValue(st.Comment)
	}
	return structpb.NewStructValue(s)
}

func decodeStatus(pv *structpb.Value) (connector.HealthStatus, error) {
	s := pv.GetStructValue()
	state, err := connector.ParseHealthState(getString(s, fieldState))
	if err != nil {
		return connector.HealthStatus{}, err
	}
	return connector.HealthStatus{State: state, Comment: getString(s, fieldComment)}, nil
}

// EncodeHealth converts a health result into its wire message.
func EncodeHealth(r connector.HealthResult) (*structpb.Struct, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	components := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(r.Components))}
	for name, st := range r.Components {
		components.Fields[name] = encodeStatus(st)
	}
	metrics := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(r.Metrics))}
	for _, m := range r.Metrics {
		pv, err := encodeValue(m.Value)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", m.Name, err)
		}
		metrics.Values = append(metrics.Values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldName:  structpb.NewStringValue(m.Name),
			fieldValue: pv,
		}}))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldOverall:    encodeStatus(r.Overall),
		fieldComponents: structpb.NewStructValue(components),
		fieldMetrics:    structpb.NewListValue(metrics),
	}}, nil
}

// DecodeHealth converts a wire message into a health result.
func DecodeHealth(msg *structpb.Struct) (connector.HealthResult, error) {
	overall, err := decodeStatus(msg.GetFields()[fieldOverall])
	if err != nil {
		return connector.HealthResult{}, fmt.Errorf("overall: %w", err)
	}
	result := connector.HealthResult{Overall: overall}

	if comps := msg.GetFields()[fieldComponents].GetStructValue(); len(comps.GetFields()) > 0 {
		result.Components = make(map[string]connector.HealthStatus, len(comps.GetFields()))
		for name, pv := range comps.GetFields() {
			st, err := decodeStatus(pv)
			if err != nil {
				return connector.HealthResult{}, fmt.Errorf("component %q: %w", name, err)
			}
			result.Components[name] = st
		}
	}

	for _, pv := range msg.GetFields()[fieldMetrics].GetListValue().GetValues() {
		m := pv.GetStructValue()
		v, err := decodeValue(m.GetFields()[fieldValue])
		if err != nil {
			return connector.HealthResult{}, fmt.Errorf("metric %q: %w", getString(m, fieldName), err)
		}
		result.Metrics = append(result.Metrics, connector.HealthMetric{Name: getString(m, fieldName), Value: v})
	}
	return result, result.Validate()
}

// EncodeInfo converts connector info into its wire message.
func EncodeInfo(info connector.Info) *structpb.Struct {
	ops := &structpb.ListValue{}
	for _, name := range info.Operations.Strings() {
		ops.Values = append(ops.Values, structpb.NewStringValue(name))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:              structpb.NewStringValue(info.ID),
		fieldDescription:     structpb.NewStringValue(info.Description),
		fieldVersion:         structpb.NewStringValue(info.Version),
		fieldArtifact:        structpb.NewStringValue(info.Artifact),
		fieldOperations:      structpb.NewListValue(ops),
		fieldSourceAvailable: structpb.NewBoolValue(info.SourceAvailable),
	}}
}

// DecodeInfo converts a wire message into connector info.
func DecodeInfo(msg *structpb.Struct) (connector.Info, error) {
	var ops []connector.Operation
	for _, pv := range msg.GetFields()[fieldOperations].GetListValue().GetValues() {
		op, err := connector.ParseOperation(pv.GetStringValue())
		if err != nil {
			return connector.Info{}, err
		}
		ops = append(ops, op)
	}
	return connector.Info{
		ID:              getString(msg, fieldID),
		Description:     getString(msg, fieldDescription),
		Version:         getString(msg, fieldVersion),
		Artifact:        getString(msg, fieldArtifact),
		Operations:      connector.NewOperationSet(ops...),
		SourceAvailable: getBool(msg, fieldSourceAvailable),
	}, nil
}

// EncodeSourceArchive converts a source archive into its wire message.
func EncodeSourceArchive(a connector.SourceArchive) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldFileName: structpb.NewStringValue(a.FileName),
		fieldData:     structpb.NewStringValue(base64.StdEncoding.EncodeToString(a.Data)),
		fieldUsesAGPL: structpb.NewBoolValue(a.UsesAGPL),
	}}
}

// DecodeSourceArchive converts a wire message into a source archive.
func DecodeSourceArchive(msg *structpb.Struct) (connector.SourceArchive, error) {
	data, err := base64.StdEncoding.DecodeString(getString(msg, fieldData))
	if err != nil {
		return connector.SourceArchive{}, fmt.Errorf("source data: %w", err)
	}
	if len(data) == 0 {
		data = nil
	}
	return connector.SourceArchive{
		FileName: getString(msg, fieldFileName),
		Data:     data,
		UsesAGPL: getBool(msg, fieldUsesAGPL),
	}, nil
}

// encodeReport wraps a pushed health result with the reporting plugin id.
func encodeReport(pluginID string, r connector.HealthResult) (*structpb.Struct, error) {
	health, err := EncodeHealth(r)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldPluginID: structpb.NewStringValue(pluginID),
		fieldHealth:   structpb.NewStructValue(health),
	}}, nil
}

func decodeReport(msg *structpb.Struct) (string, connector.HealthResult, error) {
	pluginID := getString(msg, fieldPluginID)
	if pluginID == "" {
		return "", connector.HealthResult{}, fmt.Errorf("%w: %s is required", connector.ErrInvalidHealthResult, fieldPluginID)
	}
	result, err := DecodeHealth(msg.GetFields()[fieldHealth].GetStructValue())
	if err != nil {
		return "", connector.HealthResult{}, err
	}
	return pluginID, result, nil
}
