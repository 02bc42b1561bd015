package api

import (
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

// FromStructFitRequest maps a Fit request document into a domain FitRequest.
func FromStructFitRequest(req *structpb.Struct) (models.FitRequest, error) {
	if req == nil {
		return models.FitRequest{}, fmt.Errorf("request is nil")
	}
	fields := req.GetFields()

	session, err := requiredString(fields, "session")
	if err != nil {
		return models.FitRequest{}, err
	}
	out := models.FitRequest{Session: session}

	if v, ok := fields["mismatch_policy"]; ok && v.GetStringValue() != "" {
		policy, err := models.ParseMismatchPolicy(v.GetStringValue())
		if err != nil {
			return models.FitRequest{}, err
		}
		out.Policy = policy
	}

	_, hasRefEdges := fields["reference_edges"]
	_, hasTgtEdges := fields["target_edges"]
	if hasRefEdges || hasTgtEdges {
		if out.ReferenceEdges, err = edgeList(fields, "reference_edges"); err != nil {
			return models.FitRequest{}, err
		}
		if out.TargetEdges, err = edgeList(fields, "target_edges"); err != nil {
			return models.FitRequest{}, err
		}
		return out, nil
	}

	if out.ReferenceLog, err = pulseLog(fields, "reference_log"); err != nil {
		return models.FitRequest{}, err
	}
	if out.TargetLog, err = pulseLog(fields, "target_log"); err != nil {
		return models.FitRequest{}, err
	}
	return out, nil
}

// FromStructRemapRequest maps a Remap request document. Null entries become NaN.
func FromStructRemapRequest(req *structpb.Struct) (models.RemapRequest, error) {
	if req == nil {
		return models.RemapRequest{}, fmt.Errorf("request is nil")
	}
	fields := req.GetFields()
	session, err := requiredString(fields, "session")
	if err != nil {
		return models.RemapRequest{}, err
	}
	list, ok := fields["timestamps"]
	if !ok || list.GetListValue() == nil {
		return models.RemapRequest{}, fmt.Errorf("timestamps must be a list")
	}
	values := list.GetListValue().GetValues()
	timestamps := make([]float64, len(values))
	for i, v := range values {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NumberValue:
			timestamps[i] = kind.NumberValue
		case *structpb.Value_NullValue:
			timestamps[i] = math.NaN()
		default:
			return models.RemapRequest{}, fmt.Errorf("timestamps[%d] must be a number or null", i)
		}
	}
	return models.RemapRequest{Session: session, Timestamps: timestamps}, nil
}

// SessionFromStruct reads the session field of a GetModel request.
func SessionFromStruct(req *structpb.Struct) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	return requiredString(req.GetFields(), "session")
}

// ToStructAlignment converts a fitted alignment into the Fit response document.
func ToStructAlignment(res models.Alignment) (*structpb.Struct, error) {
	doc := map[string]interface{}{
		"session":    res.Session,
		"model_id":   res.ModelID,
		"pairs":      res.Pairs,
		"validation": validationDoc(res.Validation),
		"residuals":  residualDoc(res.Residuals),
		"warnings":   stringList(res.Warnings),
	}
	if res.Model != nil {
		doc["slope"] = res.Model.Slope()
		doc["intercept"] = res.Model.Intercept()
	}
	return structpb.NewStruct(doc)
}

// ToStructRemapResponse converts remapped timestamps; NaN travels as null.
func ToStructRemapResponse(res models.RemapResponse) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"session":    res.Session,
		"model_id":   res.ModelID,
		"timestamps": numberList(res.Timestamps),
	})
}

// ToStructStoredModel converts a persisted model into the GetModel response document.
func ToStructStoredModel(stored *models.StoredModel) (*structpb.Struct, error) {
	if stored == nil || stored.Model == nil {
		return nil, fmt.Errorf("stored model is nil")
	}
	model := stored.Model
	return structpb.NewStruct(map[string]interface{}{
		"model_id":        stored.ID,
		"session":         stored.Session,
		"created_at":      stored.CreatedAt.UTC().Format(time.RFC3339Nano),
		"slope":           model.Slope(),
		"intercept":       model.Intercept(),
		"pairs":           model.Pairs(),
		"reference_edges": numberList(model.ReferenceEdges()),
		"target_edges":    numberList(model.TargetEdges()),
		"validation":      validationDoc(stored.Validation),
		"residuals":       residualDoc(stored.Residuals),
		"warnings":        stringList(stored.Warnings),
	})
}

// ToStructSessions converts a session listing.
func ToStructSessions(sessions []string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"sessions": stringList(sessions),
	})
}

func validationDoc(v models.ValidationResult) map[string]interface{} {
	return map[string]interface{}{
		"ok":              v.OK,
		"reference_count": v.ReferenceCount,
		"target_count":    v.TargetCount,
		"message":         v.Message,
	}
}

func residualDoc(r models.ResidualReport) map[string]interface{} {
	outliers := make([]interface{}, len(r.Outliers))
	for i, idx := range r.Outliers {
		outliers[i] = idx
	}
	return map[string]interface{}{
		"count":             r.Count,
		"mean":              finiteOrNil(r.Mean),
		"std_dev":           finiteOrNil(r.StdDev),
		"max_abs":           finiteOrNil(r.MaxAbs),
		"p95_abs":           finiteOrNil(r.P95Abs),
		"threshold":         r.Threshold,
		"outliers":          outliers,
		"exceeds_threshold": r.ExceedsThreshold,
	}
}

func finiteOrNil(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func numberList(values []float64) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = finiteOrNil(v)
	}
	return out
}

func stringList(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func requiredString(fields map[string]*structpb.Value, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s := strings.TrimSpace(v.GetStringValue())
	if s == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return s, nil
}

func edgeList(fields map[string]*structpb.Value, key string) (models.EdgeSequence, error) {
	v, ok := fields[key]
	if !ok || v.GetListValue() == nil {
		return nil, fmt.Errorf("%s must be a list", key)
	}
	values := v.GetListValue().GetValues()
	edges := make(models.EdgeSequence, len(values))
	for i, item := range values {
		n, ok := item.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a number", key, i)
		}
		edges[i] = n.NumberValue
	}
	return edges, nil
}

func pulseLog(fields map[string]*structpb.Value, key string) (models.PulseStateLog, error) {
	v, ok := fields[key]
	if !ok || v.GetListValue() == nil {
		return nil, fmt.Errorf("%s must be a list", key)
	}
	values := v.GetListValue().GetValues()
	log := make(models.PulseStateLog, len(values))
	for i, item := range values {
		sample := item.GetStructValue()
		if sample == nil {
			return nil, fmt.Errorf("%s[%d] must be an object", key, i)
		}
		ts, ok := sample.GetFields()["timestamp"].GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d].timestamp must be a number", key, i)
		}
		log[i].Timestamp = ts.NumberValue

		switch state := sample.GetFields()["state"].GetKind().(type) {
		case *structpb.Value_NumberValue:
			if state.NumberValue != 0 && state.NumberValue != 1 {
				return nil, fmt.Errorf("%s[%d].state must be 0 or 1", key, i)
			}
			log[i].State = uint8(state.NumberValue)
		case *structpb.Value_BoolValue:
			if state.BoolValue {
				log[i].State = 1
			}
		default:
			return nil, fmt.Errorf("%s[%d].state must be 0, 1 or a boolean", key, i)
		}
	}
	return log, nil
}
