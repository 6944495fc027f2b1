package models

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-playground/validator/v10"
	"google.golang.org/api/iterator"

	"github.com/welddesk/reports_backend/config"
	"github.com/welddesk/reports_backend/utils"
)

// Report is one weld/pipe inspection report document from the
// unsubmitted_reports collection.
//
// Id is the store-generated document id and is stable for the document's
// lifetime. Selected is UI-local state and is never persisted; every fresh
// snapshot decodes it as false and the view layer re-applies it.
type Report struct {
	Id           string     `json:"id"`
	Field        bool       `json:"field"`
	N            int64      `json:"n"`
	Customer     string     `json:"customer"`
	Division     string     `json:"division"`
	Work         string     `json:"work"`
	NameTY       string     `json:"nameTY"`
	RegTY        string     `json:"regTY"`
	ZavTY        string     `json:"zavTY"`
	YZT          *DataPoint `json:"YZT,omitempty"`
	VIK          *DataPoint `json:"VIK,omitempty"`
	CD           *DataPoint `json:"CD,omitempty"`
	YZK          *DataPoint `json:"YZK,omitempty"`
	TV           *DataPoint `json:"TV,omitempty"`
	RK           *DataPoint `json:"RK,omitempty"`
	Result       string     `json:"result"`
	Defect       *string    `json:"defect,omitempty"`
	Number       string     `json:"number"`
	Login        string     `json:"login"`
	Selected     bool       `json:"selected"`
	CreatedAt    time.Time  `json:"createdAt"`
	SerialNumber int64      `json:"serialNumber,omitempty"`
}

// DataPoint returns the sub-record for one inspection method key, nil when
// the method key is unknown or the method was not recorded.
func (r Report) DataPoint(method string) *DataPoint {
	switch method {
	case MethodYZT:
		return r.YZT
	case MethodVIK:
		return r.VIK
	case MethodCD:
		return r.CD
	case MethodYZK:
		return r.YZK
	case MethodTV:
		return r.TV
	case MethodRK:
		return r.RK
	}
	return nil
}

// ColumnValue resolves a journal column to its display string. Check columns
// always resolve ("Да"/"-"); optional text columns resolve false when the
// underlying field is absent, which excludes the report from filters on that
// column.
func (r Report) ColumnValue(column string) (string, bool) {
	if IsCheckColumn(column) {
		return r.DataPoint(column).CheckValue(), true
	}
	switch column {
	case "customer":
		return r.Customer, true
	case "division":
		return r.Division, true
	case "work":
		return r.Work, true
	case "nameTY":
		return r.NameTY, true
	case "regTY":
		return r.RegTY, true
	case "zavTY":
		return r.ZavTY, true
	case "result":
		return r.Result, true
	case "defect":
		if r.Defect == nil {
			return "", false
		}
		return *r.Defect, true
	case "number":
		return r.Number, true
	case "login":
		return r.Login, true
	case "n":
		return strconv.FormatInt(r.N, 10), true
	}
	return "", false
}

// DecodeReport builds a Report from a raw document. Decoding is manual so the
// legacy field shapes survive: `n` stored as string or integer, DataPoint
// columns stored as arrays or delimited strings.
func DecodeReport(id string, data map[string]any) Report {
	r := Report{
		Id:       id,
		Customer: decodeString(data["customer"]),
		Division: decodeString(data["division"]),
		Work:     decodeString(data["work"]),
		NameTY:   decodeString(data["nameTY"]),
		RegTY:    decodeString(data["regTY"]),
		ZavTY:    decodeString(data["zavTY"]),
		Result:   decodeString(data["result"]),
		Number:   decodeString(data["number"]),
		Login:    decodeString(data["login"]),
		YZT:      decodeDataPoint(data["YZT"]),
		VIK:      decodeDataPoint(data["VIK"]),
		CD:       decodeDataPoint(data["CD"]),
		YZK:      decodeDataPoint(data["YZK"]),
		TV:       decodeDataPoint(data["TV"]),
		RK:       decodeDataPoint(data["RK"]),
	}
	if v, ok := data["field"].(bool); ok {
		r.Field = v
	}
	r.N = decodeInt(data["n"])
	r.SerialNumber = decodeInt(data["serialNumber"])
	if v, ok := data["defect"].(string); ok {
		r.Defect = &v
	}
	if v, ok := data["createdAt"].(time.Time); ok {
		r.CreatedAt = v
	}
	return r
}

func decodeString(v any) string {
	s, _ := v.(string)
	return s
}

func decodeInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	}
	return 0
}

// ReportStore is the boundary to the external document store. The Firestore
// implementation is the production one; tests substitute an in-memory fake.
type ReportStore interface {
	ListReports(ctx context.Context) ([]Report, error)
	GetReport(ctx context.Context, id string) (*Report, error)
	UpdateReportFields(ctx context.Context, id string, fields map[string]any) error
	DeleteReport(ctx context.Context, id string) error
}

type firestoreReportStore struct{}

// NewFirestoreReportStore returns the store backed by the shared Firestore
// client from config.
func NewFirestoreReportStore() ReportStore {
	return firestoreReportStore{}
}

func (firestoreReportStore) ListReports(ctx context.Context) ([]Report, error) {
	client := config.GetFirestore()
	if client == nil {
		return nil, utils.ErrSubscription
	}

	var out []Report
	it := client.Collection(config.ReportsCollection).Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, utils.MapStoreError(err)
		}
		out = append(out, DecodeReport(doc.Ref.ID, doc.Data()))
	}
	return out, nil
}

func (firestoreReportStore) GetReport(ctx context.Context, id string) (*Report, error) {
	client := config.GetFirestore()
	if client == nil {
		return nil, utils.ErrSubscription
	}

	doc, err := client.Collection(config.ReportsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, utils.MapStoreError(err)
	}
	r := DecodeReport(doc.Ref.ID, doc.Data())
	return &r, nil
}

func (firestoreReportStore) UpdateReportFields(ctx context.Context, id string, fields map[string]any) error {
	client := config.GetFirestore()
	if client == nil {
		return utils.ErrSubscription
	}

	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	_, err := client.Collection(config.ReportsCollection).Doc(id).Update(ctx, updates)
	return utils.MapStoreError(err)
}

func (firestoreReportStore) DeleteReport(ctx context.Context, id string) error {
	client := config.GetFirestore()
	if client == nil {
		return utils.ErrSubscription
	}

	_, err := client.Collection(config.ReportsCollection).Doc(id).Delete(ctx)
	return utils.MapStoreError(err)
}

var validate = validator.New()

// ReportPatch is the editable subset of a report. Only non-nil fields are
// written, as a partial update, so concurrent changes to other fields are
// never clobbered.
type ReportPatch struct {
	Customer *string `json:"customer" validate:"omitempty,max=200"`
	Division *string `json:"division" validate:"omitempty,max=200"`
	Work     *string `json:"work" validate:"omitempty,max=200"`
	NameTY   *string `json:"nameTY" validate:"omitempty,max=200"`
	RegTY    *string `json:"regTY" validate:"omitempty,max=100"`
	ZavTY    *string `json:"zavTY" validate:"omitempty,max=100"`
	Result   *string `json:"result" validate:"omitempty,max=2000"`
	Defect   *string `json:"defect" validate:"omitempty,max=2000"`
	Number   *string `json:"number" validate:"omitempty,max=50"`
}

// Fields flattens the patch to store field paths.
func (p ReportPatch) Fields() map[string]any {
	out := map[string]any{}
	set := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	set("customer", p.Customer)
	set("division", p.Division)
	set("work", p.Work)
	set("nameTY", p.NameTY)
	set("regTY", p.RegTY)
	set("zavTY", p.ZavTY)
	set("result", p.Result)
	set("defect", p.Defect)
	set("number", p.Number)
	return out
}

// editableReportFields gates EditSession.FieldChanged and patch validation.
var editableReportFields = map[string]bool{
	"customer": true,
	"division": true,
	"work":     true,
	"nameTY":   true,
	"regTY":    true,
	"zavTY":    true,
	"result":   true,
	"defect":   true,
	"number":   true,
}

func IsEditableField(name string) bool {
	return editableReportFields[name]
}

func requireAdmin(ctx context.Context, policy AuthorizationPolicy) error {
	email, ok := utils.GetUserEmailFromContext(ctx)
	if !ok || email == "" {
		return utils.ErrUnauthenticated
	}
	if !policy.IsAdmin(email) {
		return utils.ErrPermissionDenied
	}
	return nil
}

// EditReport is the privileged boundary operation: validate the caller is the
// admin identity, verify the report exists, then apply a partial patch.
// Fails closed on any authorization or store error.
func EditReport(ctx context.Context, store ReportStore, policy AuthorizationPolicy, reportId string, patch ReportPatch) error {
	if err := requireAdmin(ctx, policy); err != nil {
		return err
	}
	if err := validate.Struct(patch); err != nil {
		return err
	}

	if _, err := store.GetReport(ctx, reportId); err != nil {
		return err
	}

	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	return store.UpdateReportFields(ctx, reportId, fields)
}

// DeleteReportById is the privileged single-report delete.
func DeleteReportById(ctx context.Context, store ReportStore, policy AuthorizationPolicy, reportId string) error {
	if err := requireAdmin(ctx, policy); err != nil {
		return err
	}

	if _, err := store.GetReport(ctx, reportId); err != nil {
		return err
	}
	return store.DeleteReport(ctx, reportId)
}
