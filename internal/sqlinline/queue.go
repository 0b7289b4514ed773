package sqlinline

// GenerationJobsChannel is the LISTEN/NOTIFY channel carrying generation ids.
const GenerationJobsChannel = "generation_jobs"

const QNotifyGenerationJob = `--sql e0e3081b-499e-46be-aaf2-a93bb610f150
select pg_notify('generation_jobs', $1::text);
`
