package email

const (
	subjectApplicationSubmittedFmt = "We received your loan application %s"
	subjectApplicationApprovedFmt  = "Your loan application %s is approved"
	subjectApplicationRejectedFmt  = "Update on your loan application %s"
	subjectQueryRaisedFmt          = "We need more information on application %s"
	subjectAdminNewApplicationFmt  = "New loan application %s awaiting review"
)
