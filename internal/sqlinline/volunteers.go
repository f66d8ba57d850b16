package sqlinline

const QInsertRegistration = `--sql 3349a454-6b60-4963-8f39-37cc7f475c73
insert into volunteer_registrations (
    id, project_id, volunteer_id, skills, hours_per_week, preferred_role, experience, motivation,
    availability, status, approved_at, created_at, updated_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $12);
`

const QSelectRegistrationByID = `--sql 365a6c3f-749e-4ca8-b0bf-f916892870a7
select id, project_id, volunteer_id, skills, hours_per_week, preferred_role, experience, motivation,
       availability, status, reviewed_by, reviewed_at, review_notes, rejection_reason,
       hours_contributed, tasks_completed, last_activity_at, contribution_score,
       certificate_url, certificate_generated, certificate_generated_at,
       approved_at, activated_at, completed_at, withdrawn_at, suspended_at, created_at, updated_at
from volunteer_registrations
where id = $1;
`

// QTransitionRegistration stamps the timestamp column that belongs to the target status.
const QTransitionRegistration = `--sql 8bdec9bb-622b-4d37-be99-24ea52c4b504
update volunteer_registrations
set status           = $3,
    reviewed_by      = coalesce($4::text, reviewed_by),
    reviewed_at      = case when $4::text is not null then $7 else reviewed_at end,
    review_notes     = coalesce(nullif($5::text, ''), review_notes),
    rejection_reason = coalesce(nullif($6::text, ''), rejection_reason),
    approved_at      = case when $3 = 'approved'  then coalesce(approved_at, $7)  else approved_at end,
    activated_at     = case when $3 = 'active'    then coalesce(activated_at, $7) else activated_at end,
    completed_at     = case when $3 = 'completed' then coalesce(completed_at, $7) else completed_at end,
    withdrawn_at     = case when $3 = 'withdrawn' then coalesce(withdrawn_at, $7) else withdrawn_at end,
    suspended_at     = case when $3 = 'suspended' then coalesce(suspended_at, $7) else suspended_at end,
    updated_at       = $7
where id = $1
  and status = any($2::text[])
returning id, project_id, volunteer_id, skills, hours_per_week, preferred_role, experience, motivation,
          availability, status, reviewed_by, reviewed_at, review_notes, rejection_reason,
          hours_contributed, tasks_completed, last_activity_at, contribution_score,
          certificate_url, certificate_generated, certificate_generated_at,
          approved_at, activated_at, completed_at, withdrawn_at, suspended_at, created_at, updated_at;
`

const QRecordRegistrationActivity = `--sql 4d37fcd9-a77f-4f49-a74a-40fb015a8986
update volunteer_registrations
set hours_contributed  = $2,
    tasks_completed    = $3,
    contribution_score = $2 * 10 + $3 * 20,
    last_activity_at   = $5,
    updated_at         = $5
where id = $1
  and status = any($4::text[])
  and hours_contributed <= $2
  and tasks_completed <= $3
returning id, project_id, volunteer_id, skills, hours_per_week, preferred_role, experience, motivation,
          availability, status, reviewed_by, reviewed_at, review_notes, rejection_reason,
          hours_contributed, tasks_completed, last_activity_at, contribution_score,
          certificate_url, certificate_generated, certificate_generated_at,
          approved_at, activated_at, completed_at, withdrawn_at, suspended_at, created_at, updated_at;
`

const QSetRegistrationCertificate = `--sql 529d60fc-47f9-40bb-9b59-831cb8b72f12
update volunteer_registrations
set certificate_url = $2,
    certificate_generated = true,
    certificate_generated_at = $3,
    updated_at = $3
where id = $1
  and certificate_generated = false;
`

const QDeleteRegistration = `--sql 73f9a473-e994-4326-890c-c12a7b62c038
delete from volunteer_registrations
where id = $1
  and status = any($2::text[]);
`

const QRegistrationExists = `--sql cc85c156-0f43-469d-aa79-9f2df81ae4ab
select exists(select 1 from volunteer_registrations where id = $1);
`

const QRegistrationPairExists = `--sql 0e6f2b8d-5a41-4c7e-9d3f-71b2c8e4a6d0
select exists(
    select 1 from volunteer_registrations where project_id = $1 and volunteer_id = $2
);
`

const QCountRegistrationsByStatus = `--sql a133c664-23aa-4992-ba04-e6ba7e5a046d
select count(*)
from volunteer_registrations
where project_id = $1
  and status = any($2::text[]);
`

const QListRegistrationsByProject = `--sql 4796d218-a751-470c-90e3-f3461ad98469
select id, project_id, volunteer_id, skills, hours_per_week, preferred_role, experience, motivation,
       availability, status, reviewed_by, reviewed_at, review_notes, rejection_reason,
       hours_contributed, tasks_completed, last_activity_at, contribution_score,
       certificate_url, certificate_generated, certificate_generated_at,
       approved_at, activated_at, completed_at, withdrawn_at, suspended_at, created_at, updated_at
from volunteer_registrations
where project_id = $1
  and (cardinality($2::text[]) = 0 or status = any($2::text[]))
order by created_at asc;
`
