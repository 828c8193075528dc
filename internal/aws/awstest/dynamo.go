// Package awstest provides in-memory fakes of the AWS clients for unit tests.
//
// Dynamo understands the small expression dialect the stores use: SET with
// plain values, "x + :n" and "if_not_exists(x, :zero) + :n"; REMOVE; and
// conditions joined by AND built from attribute_exists, attribute_not_exists,
// "=" and "<>".
package awstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Dynamo is a goroutine-safe in-memory DynamoDB fake.
type Dynamo struct {
	mu       sync.Mutex
	keys     map[string]string // table -> partition key attribute
	tables   map[string]map[string]map[string]types.AttributeValue
	failures map[string][]error
	calls    map[string]int

	// BeforeUpdate, when set, runs before every UpdateItem is applied and
	// outside the fake's lock. Tests use it to interleave concurrent writers.
	BeforeUpdate func(in *dyn.UpdateItemInput)
}

// NewDynamo creates a fake with the given table -> partition key schema.
func NewDynamo(keys map[string]string) *Dynamo {
	d := &Dynamo{
		keys:     keys,
		tables:   map[string]map[string]map[string]types.AttributeValue{},
		failures: map[string][]error{},
		calls:    map[string]int{},
	}
	for t := range keys {
		d.tables[t] = map[string]map[string]types.AttributeValue{}
	}
	return d
}

// FailNext makes the next call of op (e.g. "GetItem") return err.
func (d *Dynamo) FailNext(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = append(d.failures[op], err)
}

// Calls returns how many times op was invoked.
func (d *Dynamo) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Item returns a copy of the stored item, or nil.
func (d *Dynamo) Item(table, pk string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	item, ok := d.tables[table][pk]
	if !ok {
		return nil
	}
	return copyItem(item)
}

// Len returns the number of items in table.
func (d *Dynamo) Len(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables[table])
}

// Seed stores item directly, bypassing conditions.
func (d *Dynamo) Seed(table string, item map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pk, err := d.pkOf(table, item)
	if err != nil {
		panic(err)
	}
	d.ensure(table)[pk] = copyItem(item)
}

func (d *Dynamo) begin(op string) error {
	d.calls[op]++
	if q := d.failures[op]; len(q) > 0 {
		d.failures[op] = q[1:]
		return q[0]
	}
	return nil
}

func (d *Dynamo) ensure(table string) map[string]map[string]types.AttributeValue {
	if _, ok := d.tables[table]; !ok {
		d.tables[table] = map[string]map[string]types.AttributeValue{}
	}
	return d.tables[table]
}

func (d *Dynamo) pkOf(table string, item map[string]types.AttributeValue) (string, error) {
	name, ok := d.keys[table]
	if !ok {
		return "", fmt.Errorf("awstest: unknown table %q", table)
	}
	av, ok := item[name]
	if !ok {
		return "", fmt.Errorf("awstest: item has no %s", name)
	}
	return scalar(av), nil
}

func (d *Dynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("PutItem"); err != nil {
		return nil, err
	}
	if err := d.put(*in.TableName, in.Item, in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) put(table string, item map[string]types.AttributeValue, cond *string, names map[string]string, values map[string]types.AttributeValue) error {
	pk, err := d.pkOf(table, item)
	if err != nil {
		return err
	}
	current := d.ensure(table)[pk]
	if ok, err := evalCondition(cond, current, names, values); err != nil {
		return err
	} else if !ok {
		return conditionFailed()
	}
	d.ensure(table)[pk] = copyItem(item)
	return nil
}

func (d *Dynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("GetItem"); err != nil {
		return nil, err
	}
	pk, err := d.pkOf(*in.TableName, in.Key)
	if err != nil {
		return nil, err
	}
	item, ok := d.ensure(*in.TableName)[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (d *Dynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	if hook := d.BeforeUpdate; hook != nil {
		hook(in)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("UpdateItem"); err != nil {
		return nil, err
	}
	item, err := d.update(*in.TableName, in.Key, in.UpdateExpression, in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (d *Dynamo) update(table string, key map[string]types.AttributeValue, expr, cond *string, names map[string]string, values map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	pk, err := d.pkOf(table, key)
	if err != nil {
		return nil, err
	}
	current, exists := d.ensure(table)[pk]
	if ok, err := evalCondition(cond, current, names, values); err != nil {
		return nil, err
	} else if !ok {
		return nil, conditionFailed()
	}
	next := copyItem(key)
	if exists {
		next = copyItem(current)
	}
	if expr != nil {
		if err := applyUpdate(*expr, next, names, values); err != nil {
			return nil, err
		}
	}
	d.ensure(table)[pk] = next
	return next, nil
}

func (d *Dynamo) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("Query"); err != nil {
		return nil, err
	}
	if in.KeyConditionExpression == nil {
		return nil, errors.New("awstest: query without key condition")
	}
	var out []map[string]types.AttributeValue
	for _, pk := range sortedKeys(d.ensure(*in.TableName)) {
		item := d.tables[*in.TableName][pk]
		ok, err := evalCondition(in.KeyConditionExpression, item, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, copyItem(item))
		}
		if in.Limit != nil && int32(len(out)) >= *in.Limit {
			break
		}
	}
	return &dyn.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (d *Dynamo) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("Scan"); err != nil {
		return nil, err
	}
	var out []map[string]types.AttributeValue
	for _, pk := range sortedKeys(d.ensure(*in.TableName)) {
		out = append(out, copyItem(d.tables[*in.TableName][pk]))
	}
	return &dyn.ScanOutput{Items: out, Count: int32(len(out))}, nil
}

func (d *Dynamo) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("TransactWriteItems"); err != nil {
		return nil, err
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	canceled := false
	for i, it := range in.TransactItems {
		var (
			table, cond string
			key         map[string]types.AttributeValue
			names       map[string]string
			values      map[string]types.AttributeValue
		)
		switch {
		case it.Put != nil:
			table, key, names, values = *it.Put.TableName, it.Put.Item, it.Put.ExpressionAttributeNames, it.Put.ExpressionAttributeValues
			cond = deref(it.Put.ConditionExpression)
		case it.Update != nil:
			table, key, names, values = *it.Update.TableName, it.Update.Key, it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues
			cond = deref(it.Update.ConditionExpression)
		case it.ConditionCheck != nil:
			table, key, names, values = *it.ConditionCheck.TableName, it.ConditionCheck.Key, it.ConditionCheck.ExpressionAttributeNames, it.ConditionCheck.ExpressionAttributeValues
			cond = deref(it.ConditionCheck.ConditionExpression)
		default:
			return nil, errors.New("awstest: unsupported transact item")
		}
		pk, err := d.pkOf(table, key)
		if err != nil {
			return nil, err
		}
		ok, err := evalCondition(&cond, d.ensure(table)[pk], names, values)
		if err != nil {
			return nil, err
		}
		code := "None"
		if !ok {
			code = "ConditionalCheckFailed"
			canceled = true
		}
		reasons[i] = types.CancellationReason{Code: &code}
	}
	if canceled {
		msg := "Transaction cancelled, please refer cancellation reasons for specific reasons"
		return nil, &types.TransactionCanceledException{Message: &msg, CancellationReasons: reasons}
	}

	for _, it := range in.TransactItems {
		switch {
		case it.Put != nil:
			if err := d.put(*it.Put.TableName, it.Put.Item, nil, nil, nil); err != nil {
				return nil, err
			}
		case it.Update != nil:
			u := it.Update
			if _, err := d.update(*u.TableName, u.Key, u.UpdateExpression, nil, u.ExpressionAttributeNames, u.ExpressionAttributeValues); err != nil {
				return nil, err
			}
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func conditionFailed() error {
	msg := "The conditional request failed"
	return &types.ConditionalCheckFailedException{Message: &msg}
}

func evalCondition(expr *string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return true, nil
	}
	for _, term := range strings.Split(*expr, " AND ") {
		term = strings.TrimSpace(term)
		switch {
		case strings.HasPrefix(term, "attribute_not_exists("):
			p := resolve(strings.TrimSuffix(strings.TrimPrefix(term, "attribute_not_exists("), ")"), names)
			if _, ok := item[p]; ok {
				return false, nil
			}
		case strings.HasPrefix(term, "attribute_exists("):
			p := resolve(strings.TrimSuffix(strings.TrimPrefix(term, "attribute_exists("), ")"), names)
			if _, ok := item[p]; !ok {
				return false, nil
			}
		case strings.Contains(term, " <> "):
			l, r, _ := strings.Cut(term, " <> ")
			v, ok := values[strings.TrimSpace(r)]
			if !ok {
				return false, fmt.Errorf("awstest: missing value %s", r)
			}
			if cur, ok := item[resolve(l, names)]; ok && equal(cur, v) {
				return false, nil
			}
		case strings.Contains(term, " = "):
			l, r, _ := strings.Cut(term, " = ")
			v, ok := values[strings.TrimSpace(r)]
			if !ok {
				return false, fmt.Errorf("awstest: missing value %s", r)
			}
			cur, ok := item[resolve(l, names)]
			if !ok || !equal(cur, v) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("awstest: unsupported condition %q", term)
		}
	}
	return true, nil
}

func applyUpdate(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) error {
	for _, section := range splitSections(expr) {
		kw, body, _ := strings.Cut(section, " ")
		switch kw {
		case "SET":
			for _, clause := range splitTop(body) {
				l, r, ok := strings.Cut(clause, " = ")
				if !ok {
					return fmt.Errorf("awstest: bad SET clause %q", clause)
				}
				v, err := operand(strings.TrimSpace(r), item, names, values)
				if err != nil {
					return err
				}
				item[resolve(l, names)] = v
			}
		case "REMOVE":
			for _, p := range splitTop(body) {
				delete(item, resolve(p, names))
			}
		default:
			return fmt.Errorf("awstest: unsupported update section %q", kw)
		}
	}
	return nil
}

func operand(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	if l, r, ok := strings.Cut(expr, " + "); ok {
		a, err := operand(strings.TrimSpace(l), item, names, values)
		if err != nil {
			return nil, err
		}
		b, err := operand(strings.TrimSpace(r), item, names, values)
		if err != nil {
			return nil, err
		}
		an, errA := strconv.ParseInt(scalar(a), 10, 64)
		bn, errB := strconv.ParseInt(scalar(b), 10, 64)
		if errA != nil || errB != nil {
			return nil, fmt.Errorf("awstest: non-numeric addition in %q", expr)
		}
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(an+bn, 10)}, nil
	}
	if strings.HasPrefix(expr, "if_not_exists(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(expr, "if_not_exists("), ")")
		p, def, _ := strings.Cut(inner, ",")
		if cur, ok := item[resolve(p, names)]; ok {
			return cur, nil
		}
		return operand(strings.TrimSpace(def), item, names, values)
	}
	if strings.HasPrefix(expr, ":") {
		v, ok := values[expr]
		if !ok {
			return nil, fmt.Errorf("awstest: missing value %s", expr)
		}
		return v, nil
	}
	v, ok := item[resolve(expr, names)]
	if !ok {
		return nil, fmt.Errorf("awstest: attribute %s does not exist", expr)
	}
	return v, nil
}

// splitSections splits "SET a = :a REMOVE b" into its keyword sections.
func splitSections(expr string) []string {
	words := strings.Fields(expr)
	var out []string
	var cur []string
	for _, w := range words {
		if w == "SET" || w == "REMOVE" {
			if len(cur) > 0 {
				out = append(out, strings.Join(cur, " "))
			}
			cur = []string{w}
			continue
		}
		cur = append(cur, w)
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

// splitTop splits on commas outside parentheses.
func splitTop(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func resolve(p string, names map[string]string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "#") {
		if n, ok := names[p]; ok {
			return n
		}
	}
	return p
}

func scalar(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(v.Value)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		x, errX := strconv.ParseFloat(av.Value, 64)
		y, errY := strconv.ParseFloat(bv.Value, 64)
		return errX == nil && errY == nil && x == y
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	default:
		return false
	}
}

func copyItem(in map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]map[string]types.AttributeValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
