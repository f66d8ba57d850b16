package sqlinline

const QSelectProject = `--sql 712d5917-966c-4e19-b3c9-fbc1bb3c3944
select id, title, slug,
       donation_enabled, minimum_amount, allow_anonymous, show_donors,
       volunteer_enabled, max_volunteers, auto_approve, required_skills,
       amount_raised, donor_count, volunteer_count, pending_volunteers, updated_at
from projects
where id = $1;
`

const QUpsertProject = `--sql 9cb25008-2371-48ec-bf85-42d7c5db6097
insert into projects (
    id, title, slug,
    donation_enabled, minimum_amount, allow_anonymous, show_donors,
    volunteer_enabled, max_volunteers, auto_approve, required_skills,
    created_at, updated_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
on conflict (id) do update set
    title = excluded.title,
    slug = excluded.slug,
    donation_enabled = excluded.donation_enabled,
    minimum_amount = excluded.minimum_amount,
    allow_anonymous = excluded.allow_anonymous,
    show_donors = excluded.show_donors,
    volunteer_enabled = excluded.volunteer_enabled,
    max_volunteers = excluded.max_volunteers,
    auto_approve = excluded.auto_approve,
    required_skills = excluded.required_skills,
    updated_at = now();
`

const QListProjectIDs = `--sql 06ff639d-a72c-4d38-993f-37da4f854e6a
select id from projects order by created_at asc;
`

const QApplyDonationSuccess = `--sql 5d7551a9-1d33-441f-8f78-4b414d27d804
update projects
set amount_raised = amount_raised + $2,
    donor_count = donor_count + 1,
    updated_at = now()
where id = $1;
`

const QApplyDonationReversal = `--sql 4c63ac31-70a0-4bd3-b1ba-528b17b7084b
update projects
set amount_raised = greatest(amount_raised - $2, 0),
    donor_count = greatest(donor_count - 1, 0),
    updated_at = now()
where id = $1;
`

const QApplyVolunteerApproval = `--sql caade913-070f-4bf3-93f5-a512c69ee8a4
update projects
set volunteer_count = volunteer_count + 1,
    pending_volunteers = case when $2::bool then greatest(pending_volunteers - 1, 0) else pending_volunteers end,
    updated_at = now()
where id = $1;
`

const QApplyVolunteerWithdrawal = `--sql 17fc69dc-0907-4134-a81d-ac30a8793629
update projects
set volunteer_count = greatest(volunteer_count - 1, 0),
    updated_at = now()
where id = $1;
`

const QApplyPendingDelta = `--sql a33088bc-0efb-437d-8368-91767a610fdf
update projects
set pending_volunteers = greatest(pending_volunteers + $2, 0),
    updated_at = now()
where id = $1;
`

const QDeriveProjectCounters = `--sql c0ac98fc-ee7c-48c9-a448-10d83ce61066
select
    coalesce((select sum(d.amount) from donations d
              where d.project_id = p.id and d.status in ('completed', 'verified')), 0)::bigint,
    (select count(*) from donations d
     where d.project_id = p.id and d.status in ('completed', 'verified'))::int,
    (select count(*) from volunteer_registrations v
     where v.project_id = p.id and v.status in ('approved', 'active', 'completed'))::int,
    (select count(*) from volunteer_registrations v
     where v.project_id = p.id and v.status = 'pending')::int
from projects p
where p.id = $1;
`

const QOverwriteProjectCounters = `--sql f61fb23c-d1da-4fd6-a1d8-f0df5887245b
update projects
set amount_raised = $2,
    donor_count = $3,
    volunteer_count = $4,
    pending_volunteers = $5,
    updated_at = now()
where id = $1;
`
