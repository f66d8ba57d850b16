package sqlinline

const QEnqueueCertificateJob = `--sql 1ac863a7-67b5-4952-824b-d5c2008d5851
insert into certificate_jobs (id, subject, subject_id, status, attempts, next_attempt_at, last_error, created_at, updated_at)
values ($1, $2, $3, 'queued', 0, $4, '', $4, $4)
on conflict (subject, subject_id) do nothing;
`

// QClaimCertificateJob also reclaims jobs left running by a worker that died mid-issue.
const QClaimCertificateJob = `--sql 379d3a6c-2c2a-4f9b-a43f-41a877c04507
with next_job as (
    select id
    from certificate_jobs
    where (status = 'queued' and next_attempt_at <= $1)
       or (status = 'running' and updated_at < $1 - interval '10 minutes')
    order by next_attempt_at asc
    for update skip locked
    limit 1
),
updated as (
    update certificate_jobs
    set status = 'running', attempts = attempts + 1, updated_at = $1
    where id in (select id from next_job)
    returning id, subject, subject_id, status, attempts, next_attempt_at, last_error, created_at, updated_at
)
select * from updated;
`

const QMarkCertificateJobSucceeded = `--sql 1b868d36-32b7-4865-8511-692cc4a8c90f
update certificate_jobs
set status = 'succeeded', last_error = '', updated_at = now()
where id = $1;
`

const QMarkCertificateJobRetry = `--sql a8949fc1-c128-44f0-9d8c-45f82e42b1f8
update certificate_jobs
set status = 'queued', next_attempt_at = $2, last_error = $3, updated_at = now()
where id = $1;
`

const QMarkCertificateJobFailed = `--sql 9ea4ee98-ee43-4c0a-baf9-04271340eb23
update certificate_jobs
set status = 'failed', last_error = $2, updated_at = now()
where id = $1;
`
