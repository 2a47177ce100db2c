package taxonomy

import (
	"regexp"
	"strings"
)

type orderRule struct {
	re     *regexp.Regexp
	status OrderStatus
}

type returnRule struct {
	re     *regexp.Regexp
	status ReturnStatus
}

// Порядок правил важен: первое совпадение побеждает.
// Фразы с несколькими ключевыми словами ("cancelled after delivery attempt")
// разрешаются строго по этому порядку.
var orderRules = []orderRule{
	{regexp.MustCompile(`\b(rto|rts) ?delivered\b|\breturn(ed)? to (origin|shipper) delivered\b|\bdelivered to (origin|shipper|seller)\b`), OrderRTODelivered},
	{regexp.MustCompile(`\b(rto|rts)\b|\breturn(ed)? to (origin|shipper|seller)\b`), OrderRTO},
	{regexp.MustCompile(`cancel|\blost\b|damage|exception|misrout|\bheld\b|on hold|destroyed`), OrderException},
	{regexp.MustCompile(`\bout for delivery\b|\bofd\b`), OrderOutForDelivery},
	{regexp.MustCompile(`undeliver|not delivered|delivery failed|failed delivery|delivery attempt|attempted|refused|consignee (not available|unavailable)`), OrderUndelivered},
	{regexp.MustCompile(`\bdelivered\b`), OrderDelivered},
	{regexp.MustCompile(`\bnot picked\b|pickup (pending|scheduled)|\bmanifest|\bbooked\b|\bpending\b|\bcreated\b|awaiting pickup`), OrderPending},
	{regexp.MustCompile(`transit|\barrived\b|\breached\b|\bhub\b|\bconnected\b|forwarded|received at`), OrderInTransit},
	{regexp.MustCompile(`dispatch|\bshipped\b|\bdeparted\b|\bbagged\b|left (the )?facility`), OrderDispatched},
	{regexp.MustCompile(`\bpicked\b|pickup (done|completed|successful)|\bcollected\b`), OrderPickedUp},
}

var returnRules = []returnRule{
	{regexp.MustCompile(`refund`), ReturnRefunded},
	{regexp.MustCompile(`replace|exchange`), ReturnReplaced},
	{regexp.MustCompile(`reject|qc fail|quality check fail|cancel`), ReturnRejected},
	{regexp.MustCompile(`quality check|\bqc\b|inspection`), ReturnQualityCheck},
	{regexp.MustCompile(`(received|delivered) (at|to) (the )?warehouse|\bwarehouse\b|\bdelivered\b|(rto|rts) ?delivered`), ReturnDeliveredToWarehouse},
	{regexp.MustCompile(`pickup (scheduled|pending)|\bscheduled\b|out for pickup`), ReturnPickupScheduled},
	{regexp.MustCompile(`transit|\bpicked\b|dispatch|\bshipped\b|\bhub\b|\barrived\b|\b(rto|rts)\b|out for delivery`), ReturnInTransit},
}

var separators = strings.NewReplacer("_", " ", "-", " ", "\t", " ", "\n", " ")

func normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = separators.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ClassifyOrderStatus maps arbitrary carrier text to an order status.
// Never fails: empty and unmatched text resolve to DefaultOrderStatus.
func ClassifyOrderStatus(text string) OrderStatus {
	s := normalize(text)
	if s == "" {
		return DefaultOrderStatus
	}
	for _, r := range orderRules {
		if r.re.MatchString(s) {
			return r.status
		}
	}
	return DefaultOrderStatus
}

// ClassifyReturnStatus maps arbitrary carrier text to a return status.
func ClassifyReturnStatus(text string) ReturnStatus {
	s := normalize(text)
	if s == "" {
		return DefaultReturnStatus
	}
	for _, r := range returnRules {
		if r.re.MatchString(s) {
			return r.status
		}
	}
	return DefaultReturnStatus
}
